package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// mockRetriever implements Retriever for testing.
type mockRetriever struct {
	results   []knowledge.Result
	err       error
	callCount int
	lastQuery string
}

func (m *mockRetriever) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	m.callCount++
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	answer      string
	err         error
	callCount   int
	lastSystem  string
	lastHistory []conversation.Turn
	lastInput   string
}

func (m *mockGenerator) Generate(ctx context.Context, system string, history []conversation.Turn, question string) (string, error) {
	m.callCount++
	m.lastSystem = system
	m.lastHistory = history
	m.lastInput = question
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func resultWith(content, source string) knowledge.Result {
	return knowledge.Result{
		Chunk: knowledge.Chunk{
			Content:  content,
			Metadata: map[string]string{knowledge.MetaSource: source},
		},
		Similarity: 0.9,
	}
}

func TestAskHappyPath(t *testing.T) {
	retriever := &mockRetriever{results: []knowledge.Result{
		resultWith("Το πρώτο ματς έγινε το 1925.", "https://example.com/history"),
		resultWith("Ο Ολυμπιακός έχει κερδίσει περισσότερες φορές.", "https://example.com/stats"),
	}}
	generator := &mockGenerator{answer: "Το πρώτο επίσημο ντέρμπι έγινε το 1925."}
	convLog := conversation.NewLog()

	p := NewPipeline(retriever, generator, convLog, Options{}, log.NewNop())

	turn, err := p.Ask(context.Background(), "Πότε έγινε το πρώτο ντέρμπι;")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if turn.Answer != "Το πρώτο επίσημο ντέρμπι έγινε το 1925." {
		t.Errorf("answer = %q, want the model text verbatim", turn.Answer)
	}
	if turn.Kind != conversation.KindAnswer {
		t.Errorf("kind = %q, want answer", turn.Kind)
	}
	if len(turn.Sources) != 2 || turn.Sources[0] != "https://example.com/history" {
		t.Errorf("sources = %v", turn.Sources)
	}

	// Prompt carries the chunk text joined with blank lines.
	if !strings.Contains(generator.lastSystem, "Το πρώτο ματς έγινε το 1925.\n\nΟ Ολυμπιακός") {
		t.Errorf("system prompt missing joined context: %q", generator.lastSystem)
	}
	if !strings.Contains(generator.lastSystem, "Ολυμπιακός-Παναθηναϊκός") {
		t.Error("system prompt missing Greek instruction header")
	}

	if retriever.callCount != 1 || generator.callCount != 1 {
		t.Errorf("calls: retrieve=%d generate=%d, want 1 each (no retries)",
			retriever.callCount, generator.callCount)
	}

	history := convLog.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want exactly 1 turn per call", len(history))
	}
}

func TestAskEmptyRetrievalStillGenerates(t *testing.T) {
	retriever := &mockRetriever{results: nil}
	generator := &mockGenerator{answer: "Δεν γνωρίζω."}
	convLog := conversation.NewLog()

	p := NewPipeline(retriever, generator, convLog, Options{}, log.NewNop())

	turn, err := p.Ask(context.Background(), "άσχετη ερώτηση")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if generator.callCount != 1 {
		t.Error("generation must run even with zero retrieved chunks")
	}
	if len(turn.Sources) != 0 {
		t.Errorf("sources = %v, want empty", turn.Sources)
	}
}

func TestAskRetrieverFailureRecordsErrorTurn(t *testing.T) {
	retriever := &mockRetriever{err: errors.New("index unavailable")}
	generator := &mockGenerator{}
	convLog := conversation.NewLog()

	p := NewPipeline(retriever, generator, convLog, Options{}, log.NewNop())

	turn, err := p.Ask(context.Background(), "ερώτηση")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if generator.callCount != 0 {
		t.Error("generation must not run after retrieval failure")
	}

	if turn.Kind != conversation.KindError {
		t.Errorf("kind = %q, want error", turn.Kind)
	}
	if !strings.HasPrefix(turn.Answer, "Σφάλμα: ") {
		t.Errorf("answer = %q, want Greek error prefix", turn.Answer)
	}

	history := convLog.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want exactly 1 turn on failure too", len(history))
	}
	if history[0].Kind != conversation.KindError {
		t.Error("recorded turn should carry the error kind")
	}
}

func TestAskGeneratorFailureRecordsErrorTurn(t *testing.T) {
	retriever := &mockRetriever{results: []knowledge.Result{resultWith("x", "s")}}
	genErr := errors.New("model overloaded")
	generator := &mockGenerator{err: genErr}
	convLog := conversation.NewLog()

	p := NewPipeline(retriever, generator, convLog, Options{}, log.NewNop())

	_, err := p.Ask(context.Background(), "ερώτηση")
	if !errors.Is(err, genErr) {
		t.Fatalf("error = %v, want wrapped %v", err, genErr)
	}
	if len(convLog.History()) != 1 {
		t.Error("exactly one turn per call, success or failure")
	}
	if generator.callCount != 1 {
		t.Errorf("generate calls = %d, want 1 (no retries)", generator.callCount)
	}
}

func TestAskSequentialTurnsBuildHistory(t *testing.T) {
	retriever := &mockRetriever{}
	generator := &mockGenerator{answer: "απάντηση"}
	convLog := conversation.NewLog()

	p := NewPipeline(retriever, generator, convLog, Options{HistoryWindow: 6}, log.NewNop())

	if _, err := p.Ask(context.Background(), "πρώτη"); err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if _, err := p.Ask(context.Background(), "δεύτερη"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	history := convLog.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Question != "πρώτη" || history[1].Question != "δεύτερη" {
		t.Error("history out of order")
	}

	// The second call's prompt saw the first turn, not itself.
	if len(generator.lastHistory) != 1 || generator.lastHistory[0].Question != "πρώτη" {
		t.Errorf("prompt history = %+v, want just the first turn", generator.lastHistory)
	}
}

func TestAskSourcesFallBackToUnknown(t *testing.T) {
	retriever := &mockRetriever{results: []knowledge.Result{
		{Chunk: knowledge.Chunk{Content: "κείμενο χωρίς πηγή"}},
	}}
	generator := &mockGenerator{answer: "a"}

	p := NewPipeline(retriever, generator, conversation.NewLog(), Options{}, log.NewNop())

	turn, err := p.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(turn.Sources) != 1 || turn.Sources[0] != "unknown" {
		t.Errorf("sources = %v, want [unknown]", turn.Sources)
	}
}

func TestSampleQuestionsNotEmpty(t *testing.T) {
	if len(SampleQuestions) == 0 {
		t.Fatal("no sample questions defined")
	}
	for i, q := range SampleQuestions {
		if strings.TrimSpace(q) == "" {
			t.Errorf("sample question %d is blank", i)
		}
	}
}
