// Package knowledge implements the vector index client: chunk storage and
// semantic search over PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Querier defines the database operations the Store needs.
// Interfaces are defined by the consumer, not the provider, so tests can
// substitute an in-memory implementation.
type Querier interface {
	// UpsertChunks writes all chunks in a single transaction.
	UpsertChunks(ctx context.Context, args []UpsertChunkParams) error

	// SearchChunks performs top-k cosine similarity search.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error)

	// CountChunks counts all stored chunks.
	CountChunks(ctx context.Context) (int64, error)
}

// UpsertChunkParams is one row of a batched upsert.
type UpsertChunkParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
}

// SearchChunksParams configures a similarity search query.
type SearchChunksParams struct {
	QueryEmbedding *pgvector.Vector
	ResultLimit    int
}

// ChunkRow is a search result row.
type ChunkRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

// Store manages chunks with vector search capabilities. It handles embedding
// generation and similarity search; persistence goes through Querier.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a new Store.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Upsert embeds the given chunks and writes them in one batched transaction.
// The call is idempotent: re-upserting a chunk with the same derived ID
// updates the existing row (ON CONFLICT DO UPDATE). There is no dedup against
// chunks written by earlier batches under different IDs.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	// One embed request for the whole batch; embeddings come back in input order.
	input := make([]*ai.Document, len(chunks))
	for i, c := range chunks {
		input[i] = ai.DocumentFromText(c.Content, nil)
	}
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d embeddings for %d chunks", len(resp.Embeddings), len(chunks))
	}

	args := make([]UpsertChunkParams, len(chunks))
	for i, c := range chunks {
		if len(resp.Embeddings[i].Embedding) == 0 {
			return fmt.Errorf("empty embedding returned for chunk %d", i)
		}
		embedding := pgvector.NewVector(resp.Embeddings[i].Embedding)

		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}

		args[i] = UpsertChunkParams{
			ID:        c.DeriveID(),
			Content:   c.Content,
			Embedding: &embedding,
			Metadata:  metadataJSON,
			CreatedAt: pgtype.Timestamptz{Time: c.CreatedAt, Valid: !c.CreatedAt.IsZero()},
		}
	}

	if err := s.queries.UpsertChunks(ctx, args); err != nil {
		return fmt.Errorf("upserting %d chunks: %w", len(args), err)
	}

	s.logger.Debug("upserted chunks", "count", len(args))
	return nil
}

// Search embeds the query and returns the most similar chunks, ordered by
// the index's similarity ranking.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	resp, err := s.embedder.Embed(queryCtx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned for query")
	}

	queryEmbedding := pgvector.NewVector(resp.Embeddings[0].Embedding)

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: &queryEmbedding,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	// Overflow protection for 32-bit platforms.
	if count > math.MaxInt {
		return 0, fmt.Errorf("chunk count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// CheckDimension embeds a probe string and verifies the embedder's output
// dimension matches the documents table schema. A mismatch is a
// configuration error the caller should treat as fatal at startup.
func (s *Store) CheckDimension(ctx context.Context, want int) error {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := s.embedder.Embed(probeCtx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText("ντέρμπι", nil)},
	})
	if err != nil {
		return fmt.Errorf("probing embedder dimension: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return errors.New("embedder returned no embedding for dimension probe")
	}

	got := len(resp.Embeddings[0].Embedding)
	if got != want {
		return fmt.Errorf("embedder dimension %d does not match schema dimension %d; "+
			"change embedder_model or migrate the embedding column", got, want)
	}

	s.logger.Debug("embedder dimension verified", "dimension", got)
	return nil
}

func (s *Store) rowsToResults(rows []ChunkRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse chunk metadata", "chunk_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Chunk: Chunk{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: createdAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}
