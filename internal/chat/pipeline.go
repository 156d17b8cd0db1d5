// Package chat implements the retrieve-then-generate pipeline behind the
// chat API: top-k vector search, Greek prompt assembly with recent history,
// one model call, and exactly one recorded turn per question.
package chat

import (
	"context"
	"fmt"

	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Retriever is the search surface the pipeline needs. *knowledge.Store
// satisfies it.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Generator produces one answer for a prompt. The production implementation
// wraps genkit; tests substitute a canned one.
type Generator interface {
	Generate(ctx context.Context, system string, history []conversation.Turn, question string) (string, error)
}

// State is the explicit record passed between the two pipeline stages.
type State struct {
	Question string
	Context  []knowledge.Result
	Answer   string
}

// Pipeline runs questions through retrieval and generation and records every
// exchange in the conversation log.
type Pipeline struct {
	retriever     Retriever
	generator     Generator
	log           *conversation.Log
	topK          int
	historyWindow int
	logger        log.Logger
}

// Options configures a Pipeline.
type Options struct {
	TopK          int // retrieved chunks per question (default 4)
	HistoryWindow int // recent turns included in the prompt (default 6)
}

// NewPipeline creates a Pipeline.
func NewPipeline(retriever Retriever, generator Generator, convLog *conversation.Log, opts Options, logger log.Logger) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 6
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		retriever:     retriever,
		generator:     generator,
		log:           convLog,
		topK:          opts.TopK,
		historyWindow: opts.HistoryWindow,
		logger:        logger,
	}
}

// Ask answers one question: retrieve, then generate, then record.
//
// Retrieval runs unconditionally and its result is used as-is; an empty
// result set just yields an empty context block. The model's text is
// returned verbatim. Exactly one turn is appended per call, success or
// failure; failures record a Greek error turn and return the error.
// Nothing is retried; context cancellation is the only bail-out.
func (p *Pipeline) Ask(ctx context.Context, question string) (conversation.Turn, error) {
	state := State{Question: question}

	// Snapshot the window before this turn is appended.
	history := historyWindow(p.log, p.historyWindow)

	results, err := p.retriever.Search(ctx, question, knowledge.WithTopK(p.topK))
	if err != nil {
		return p.recordError(question, fmt.Errorf("retrieving context: %w", err))
	}
	state.Context = results

	answer, err := p.generator.Generate(ctx, buildSystemPrompt(state.Context), history, question)
	if err != nil {
		return p.recordError(question, fmt.Errorf("generating answer: %w", err))
	}
	state.Answer = answer

	turn := conversation.Turn{
		Question: state.Question,
		Answer:   state.Answer,
		Sources:  sourcesOf(state.Context),
		Kind:     conversation.KindAnswer,
	}
	p.log.Append(turn)

	p.logger.Debug("answered question",
		"question_length", len(question),
		"context_chunks", len(state.Context))

	return turn, nil
}

// recordError appends a turn carrying the Greek failure message and returns
// the original error so the HTTP layer can surface it.
func (p *Pipeline) recordError(question string, err error) (conversation.Turn, error) {
	turn := conversation.Turn{
		Question: question,
		Answer:   fmt.Sprintf("Σφάλμα: %v", err),
		Kind:     conversation.KindError,
	}
	p.log.Append(turn)

	p.logger.Error("chat pipeline failed", "error", err)
	return turn, err
}
