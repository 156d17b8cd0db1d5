package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	delay         time.Duration // Simulate processing delay
	embedErr      error         // Error to return
	returnEmpty   bool          // Return empty embeddings
	dimension     int           // Embedding dimension (default 3)
	callCount     int
	lastInputText string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++

	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInputText = req.Input[0].Content[0].Text
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	dim := m.dimension
	if dim == 0 {
		dim = 3
	}

	// One embedding per input document, in order.
	out := make([]*ai.Embedding, len(req.Input))
	for i := range req.Input {
		if m.returnEmpty {
			out[i] = &ai.Embedding{Embedding: []float32{}}
			continue
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = 0.1 * float32(j+1)
		}
		out[i] = &ai.Embedding{Embedding: vec}
	}
	return &ai.EmbedResponse{Embeddings: out}, nil
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	upsertErr error
	searchErr error
	countErr  error

	searchResults []ChunkRow
	countResult   int64

	upsertCalls      int
	searchCalls      int
	countCalls       int
	lastUpsertParams []UpsertChunkParams
	lastSearchParams SearchChunksParams
}

func (m *mockQuerier) UpsertChunks(ctx context.Context, args []UpsertChunkParams) error {
	m.upsertCalls++
	m.lastUpsertParams = args
	return m.upsertErr
}

func (m *mockQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	m.searchCalls++
	m.lastSearchParams = arg
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockQuerier) CountChunks(ctx context.Context) (int64, error) {
	m.countCalls++
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.countResult, nil
}

func testChunks(n int) []Chunk {
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{
			Content: "Ο Ολυμπιακός κέρδισε το ντέρμπι " + string(rune('A'+i)),
			Metadata: map[string]string{
				MetaSource:      "https://example.com/news",
				MetaContentType: ContentTypeNews,
			},
		}
	}
	return chunks
}

func TestUpsertBatchesInOneCall(t *testing.T) {
	embedder := &mockEmbedder{}
	querier := &mockQuerier{}
	store := New(querier, embedder, log.NewNop())

	if err := store.Upsert(context.Background(), testChunks(3)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if embedder.callCount != 1 {
		t.Errorf("embedder calls = %d, want 1 (batched)", embedder.callCount)
	}
	if querier.upsertCalls != 1 {
		t.Errorf("upsert calls = %d, want 1 (single transaction)", querier.upsertCalls)
	}
	if len(querier.lastUpsertParams) != 3 {
		t.Fatalf("upsert rows = %d, want 3", len(querier.lastUpsertParams))
	}

	for i, p := range querier.lastUpsertParams {
		if p.ID == "" {
			t.Errorf("row %d: empty derived ID", i)
		}
		if p.Embedding == nil {
			t.Errorf("row %d: nil embedding", i)
		}
		var meta map[string]string
		if err := json.Unmarshal(p.Metadata, &meta); err != nil {
			t.Errorf("row %d: bad metadata JSON: %v", i, err)
		} else if meta[MetaContentType] != ContentTypeNews {
			t.Errorf("row %d: content_type = %q", i, meta[MetaContentType])
		}
	}
}

func TestUpsertEmptyBatchIsNoop(t *testing.T) {
	embedder := &mockEmbedder{}
	querier := &mockQuerier{}
	store := New(querier, embedder, log.NewNop())

	if err := store.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert(nil): %v", err)
	}
	if embedder.callCount != 0 || querier.upsertCalls != 0 {
		t.Error("empty batch should not touch embedder or database")
	}
}

func TestUpsertDeterministicIDs(t *testing.T) {
	chunk := Chunk{
		Content:  "same text",
		Metadata: map[string]string{MetaSource: "https://example.com/a"},
	}
	if chunk.DeriveID() != chunk.DeriveID() {
		t.Error("DeriveID should be deterministic")
	}

	other := Chunk{
		Content:  "same text",
		Metadata: map[string]string{MetaSource: "https://example.com/b"},
	}
	if chunk.DeriveID() == other.DeriveID() {
		t.Error("chunks from different sources should get different IDs")
	}

	explicit := Chunk{ID: "my-id", Content: "same text"}
	if explicit.DeriveID() != "my-id" {
		t.Errorf("explicit ID should win, got %q", explicit.DeriveID())
	}
}

func TestUpsertEmbedderError(t *testing.T) {
	embedErr := errors.New("embedding service unavailable")
	store := New(&mockQuerier{}, &mockEmbedder{embedErr: embedErr}, log.NewNop())

	err := store.Upsert(context.Background(), testChunks(1))
	if !errors.Is(err, embedErr) {
		t.Errorf("Upsert error = %v, want wrapped %v", err, embedErr)
	}
}

func TestUpsertEmptyEmbedding(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, log.NewNop())

	if err := store.Upsert(context.Background(), testChunks(1)); err == nil {
		t.Error("expected error for empty embedding, got nil")
	}
}

func TestSearchPassesTopK(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []ChunkRow{
			{
				ID:         "c1",
				Content:    "Το ντέρμπι έληξε 2-1",
				Metadata:   []byte(`{"source":"https://example.com"}`),
				CreatedAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
				Similarity: 0.93,
			},
		},
	}
	embedder := &mockEmbedder{}
	store := New(querier, embedder, log.NewNop())

	results, err := store.Search(context.Background(), "ποιος κέρδισε", WithTopK(4))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if querier.lastSearchParams.ResultLimit != 4 {
		t.Errorf("result limit = %d, want 4", querier.lastSearchParams.ResultLimit)
	}
	if embedder.lastInputText != "ποιος κέρδισε" {
		t.Errorf("embedded text = %q, want the query", embedder.lastInputText)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Similarity != 0.93 {
		t.Errorf("similarity = %v, want 0.93", results[0].Similarity)
	}
	if results[0].Chunk.Metadata[MetaSource] != "https://example.com" {
		t.Errorf("metadata source = %q", results[0].Chunk.Metadata[MetaSource])
	}
}

func TestSearchEmbedTimeout(t *testing.T) {
	embedder := &mockEmbedder{delay: 200 * time.Millisecond}
	store := New(&mockQuerier{}, embedder, log.NewNop())

	_, err := store.Search(context.Background(), "q", WithTimeout(10*time.Millisecond))
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestSearchMalformedMetadataTolerated(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []ChunkRow{
			{ID: "bad", Content: "x", Metadata: []byte("{not json"), Similarity: 0.5},
		},
	}
	store := New(querier, &mockEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Chunk.Metadata == nil {
		t.Error("metadata should fall back to empty map, not nil")
	}
}

func TestCount(t *testing.T) {
	querier := &mockQuerier{countResult: 42}
	store := New(querier, &mockEmbedder{}, log.NewNop())

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 42 {
		t.Errorf("Count = %d, want 42", n)
	}
}

func TestCheckDimension(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		want    int
		wantErr bool
	}{
		{"match", 1024, 1024, false},
		{"mismatch", 1536, 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(&mockQuerier{}, &mockEmbedder{dimension: tt.dim}, log.NewNop())
			err := store.CheckDimension(context.Background(), tt.want)
			if tt.wantErr && err == nil {
				t.Error("expected dimension mismatch error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
