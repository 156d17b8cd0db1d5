package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// Metadata keys stamped on every chunk by the ingester.
const (
	// MetaSource is the URL the chunk's text was extracted from.
	MetaSource = "source"

	// MetaContentType tags the corpus a chunk belongs to.
	MetaContentType = "content_type"

	// MetaIngestedAt is the RFC3339 timestamp of the refresh cycle.
	MetaIngestedAt = "ingested_at"

	// MetaBatch identifies the refresh cycle that wrote the chunk.
	MetaBatch = "batch"
)

// ContentTypeNews is the content type tag for scraped derby news.
const ContentTypeNews = "derby_news"

// chunkNamespace is the UUID v5 namespace for deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("7f1d3c9a-43f2-4b7e-9a61-2f8f0f6e5d21")

// Chunk is a unit of knowledge stored in the vector index.
type Chunk struct {
	ID        string            // Unique identifier; derived from content+source when empty
	Content   string            // Chunk text
	Metadata  map[string]string // Source URL, content type, ingestion timestamp, batch id
	CreatedAt time.Time
}

// DeriveID returns the chunk's ID, computing a deterministic UUID from
// content and source when none is set. Re-ingesting the same text from the
// same page therefore overwrites rather than duplicates.
func (c Chunk) DeriveID() string {
	if c.ID != "" {
		return c.ID
	}
	return uuid.NewSHA1(chunkNamespace, []byte(c.Metadata[MetaSource]+"\x00"+c.Content)).String()
}

// Result is a single search hit with its cosine similarity score.
type Result struct {
	Chunk      Chunk
	Similarity float32 // Cosine similarity score (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return. Default is 4.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithTimeout overrides the per-search timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    4,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
