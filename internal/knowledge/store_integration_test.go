package knowledge_test

import (
	"context"
	"testing"
	"time"

	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
	"github.com/georgiosbirmpakos/derbychat/internal/testutil"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// fixedEmbedder returns deterministic 1024-dim vectors keyed by input text so
// similarity search behaves predictably without a real embedding service.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Name() string { return "fixed-embedder" }

func (f *fixedEmbedder) Register(r api.Registry) {}

func (f *fixedEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	out := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		text := doc.Content[0].Text
		vec, ok := f.vectors[text]
		if !ok {
			vec = make([]float32, 1024)
			vec[0] = 1
		}
		out[i] = &ai.Embedding{Embedding: vec}
	}
	return &ai.EmbedResponse{Embeddings: out}, nil
}

// unitVec returns a 1024-dim unit vector pointing along the given axis.
func unitVec(axis int) []float32 {
	v := make([]float32, 1024)
	v[axis] = 1
	return v
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"Ο Ολυμπιακός κέρδισε 2-0": unitVec(0),
		"Ο Παναθηναϊκός ισοφάρισε": unitVec(1),
		"ποιος κέρδισε το ντέρμπι": unitVec(0), // same direction as the first chunk
	}}

	store := knowledge.New(knowledge.NewQueries(db.Pool, "documents"), embedder, log.NewNop())

	chunks := []knowledge.Chunk{
		{
			Content: "Ο Ολυμπιακός κέρδισε 2-0",
			Metadata: map[string]string{
				knowledge.MetaSource:      "https://example.com/a",
				knowledge.MetaContentType: knowledge.ContentTypeNews,
			},
			CreatedAt: time.Now(),
		},
		{
			Content: "Ο Παναθηναϊκός ισοφάρισε",
			Metadata: map[string]string{
				knowledge.MetaSource:      "https://example.com/b",
				knowledge.MetaContentType: knowledge.ContentTypeNews,
			},
			CreatedAt: time.Now(),
		},
	}

	if err := store.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}

	// Re-upserting the same chunks must not grow the table.
	if err := store.Upsert(ctx, chunks); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count after re-upsert = %d, want 2 (idempotent)", count)
	}

	results, err := store.Search(ctx, "ποιος κέρδισε το ντέρμπι", knowledge.WithTopK(1))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Chunk.Content != "Ο Ολυμπιακός κέρδισε 2-0" {
		t.Errorf("top result = %q, want the aligned chunk", results[0].Chunk.Content)
	}
	if results[0].Similarity < 0.99 {
		t.Errorf("similarity = %v, want ~1.0 for identical direction", results[0].Similarity)
	}

	if err := store.CheckDimension(ctx, 1024); err != nil {
		t.Errorf("CheckDimension(1024): %v", err)
	}
	if err := store.CheckDimension(ctx, 512); err == nil {
		t.Error("CheckDimension(512) should fail")
	}
}
