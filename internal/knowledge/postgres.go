package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries is the pgx-backed implementation of Querier.
//
// The table name is interpolated into SQL, so it MUST come from validated
// configuration (config.Validate restricts it to a safe identifier set).
// All values go through parameterized queries.
type Queries struct {
	pool  *pgxpool.Pool
	table string
}

// NewQueries creates a Queries bound to the given pool and documents table.
func NewQueries(pool *pgxpool.Pool, table string) *Queries {
	return &Queries{pool: pool, table: table}
}

// UpsertChunks writes all chunks in a single transaction so a failed batch
// leaves the index unchanged.
func (q *Queries) UpsertChunks(ctx context.Context, args []UpsertChunkParams) error {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = now()`, q.table)

	batch := &pgx.Batch{}
	for _, arg := range args {
		batch.Queue(sql, arg.ID, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range args {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("executing upsert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SearchChunks returns the top-k rows by cosine similarity.
// <=> is pgvector's cosine distance operator; similarity = 1 - distance.
func (q *Queries) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	sql := fmt.Sprintf(`
		SELECT id, content, metadata, created_at,
		       (1 - (embedding <=> $1))::float4 AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, q.table)

	rows, err := q.pool.Query(ctx, sql, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return out, nil
}

// CountChunks counts all stored chunks.
func (q *Queries) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	sql := fmt.Sprintf(`SELECT count(*) FROM %s`, q.table)
	if err := q.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}
