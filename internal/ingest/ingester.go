// Package ingest refreshes the knowledge store from a fixed set of news
// pages: fetch, extract article text, split into overlapping chunks, stamp
// metadata, and batch-upsert into the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// ErrNoContent means a refresh cycle produced zero valid documents, even
// after the fallback fetch.
var ErrNoContent = errors.New("no valid content from any source")

// Upserter is the slice of the knowledge store the ingester writes through.
type Upserter interface {
	Upsert(ctx context.Context, chunks []knowledge.Chunk) error
}

// Report summarizes one refresh cycle.
type Report struct {
	URLsFetched   int           `json:"urls_fetched"`
	DocsKept      int           `json:"docs_kept"`
	ChunksWritten int           `json:"chunks_written"`
	Duration      time.Duration `json:"duration"`
}

// Config wires an Ingester's sources and chunking.
type Config struct {
	SourceURLs  []string
	FallbackURL string
}

// Ingester runs refresh cycles.
type Ingester struct {
	cfg       Config
	fetcher   *Fetcher
	extractor *Extractor
	splitter  *Splitter
	store     Upserter
	logger    log.Logger
}

// New creates an Ingester.
func New(cfg Config, fetcher *Fetcher, extractor *Extractor, splitter *Splitter, store Upserter, logger log.Logger) *Ingester {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingester{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		splitter:  splitter,
		store:     store,
		logger:    logger,
	}
}

// Run executes one refresh cycle.
//
// Every chunk of the cycle shares one batch id and ingestion timestamp and
// is written in a single batched upsert. When no source URL yields a valid
// document, one best-effort fetch of the fallback URL is attempted; if that
// also yields nothing, the cycle fails with zero chunks written.
func (ing *Ingester) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	batchID := fmt.Sprintf("batch_%d", start.Unix())
	ingestedAt := start.UTC().Format(time.RFC3339)

	pages := ing.fetcher.FetchAll(ctx, ing.cfg.SourceURLs)
	report := Report{URLsFetched: len(pages)}

	var chunks []knowledge.Chunk
	for _, page := range pages {
		text := ing.extractor.Extract(page.URL, page.Body)
		if text == "" {
			continue
		}
		report.DocsKept++
		chunks = append(chunks, ing.chunkDocument(text, page.URL, batchID, ingestedAt, start)...)
	}

	if len(chunks) == 0 && ing.cfg.FallbackURL != "" {
		ing.logger.Warn("no valid content from source urls, trying fallback",
			"fallback_url", ing.cfg.FallbackURL)
		if page, ok := ing.fetcher.FetchOne(ctx, ing.cfg.FallbackURL); ok {
			if text := ing.extractor.Extract(page.URL, page.Body); text != "" {
				report.URLsFetched++
				report.DocsKept++
				chunks = ing.chunkDocument(text, page.URL, batchID, ingestedAt, start)
			}
		}
	}

	if len(chunks) == 0 {
		report.Duration = time.Since(start)
		return report, ErrNoContent
	}

	if err := ing.store.Upsert(ctx, chunks); err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("writing chunks: %w", err)
	}

	report.ChunksWritten = len(chunks)
	report.Duration = time.Since(start)

	ing.logger.Info("refresh cycle completed",
		"batch", batchID,
		"urls_fetched", report.URLsFetched,
		"docs_kept", report.DocsKept,
		"chunks_written", report.ChunksWritten,
		"duration", report.Duration)

	return report, nil
}

// chunkDocument splits one document and stamps every chunk with the cycle's
// shared metadata.
func (ing *Ingester) chunkDocument(text, source, batchID, ingestedAt string, createdAt time.Time) []knowledge.Chunk {
	pieces := ing.splitter.Split(text)
	chunks := make([]knowledge.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = knowledge.Chunk{
			Content: piece,
			Metadata: map[string]string{
				knowledge.MetaSource:      source,
				knowledge.MetaContentType: knowledge.ContentTypeNews,
				knowledge.MetaIngestedAt:  ingestedAt,
				knowledge.MetaBatch:       batchID,
			},
			CreatedAt: createdAt,
		}
	}
	return chunks
}
