package config

import (
	"time"

	"github.com/spf13/viper"
)

// IngestConfig controls the content refresh job: which pages are fetched,
// how their text is extracted, and how it is split into chunks.
type IngestConfig struct {
	// SourceURLs is the fixed set of news pages fetched each cycle.
	SourceURLs []string `mapstructure:"source_urls" json:"source_urls"`

	// FallbackURL is fetched once, best-effort, when no source URL yields a
	// valid document.
	FallbackURL string `mapstructure:"fallback_url" json:"fallback_url"`

	// ContentClasses are the CSS classes scanned for article text, in order.
	// When none matches (or all matches are too short), whole-page
	// readability extraction is used instead.
	ContentClasses []string `mapstructure:"content_classes" json:"content_classes"`

	// ChunkSize and ChunkOverlap are in runes.
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// MinContentLength is the shortest extracted document worth keeping.
	MinContentLength int `mapstructure:"min_content_length" json:"min_content_length"`

	// Scraper limits.
	UserAgent   string        `mapstructure:"user_agent" json:"user_agent"`
	Parallelism int           `mapstructure:"parallelism" json:"parallelism"`
	Delay       time.Duration `mapstructure:"delay" json:"delay"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`

	// Cron is the schedule for `derbychat ingest --cron`; empty means
	// one-shot mode. Accepts robfig/cron specs, e.g. "@hourly".
	Cron string `mapstructure:"cron" json:"cron"`
}

// setIngestDefaults sets the defaults for the ingest section.
// URL set and extraction classes mirror the Gazzetta.gr pages the knowledge
// base tracks.
func setIngestDefaults() {
	viper.SetDefault("ingest.source_urls", []string{
		"https://www.gazzetta.gr/football/superleague/olympiakos",
		"https://www.gazzetta.gr/football/superleague/panathinaikos",
		"https://www.gazzetta.gr/football/superleague",
		"https://www.gazzetta.gr",
	})
	viper.SetDefault("ingest.fallback_url", "https://www.gazzetta.gr/football/superleague")
	viper.SetDefault("ingest.content_classes", []string{
		"article-content", "article-title", "article-body", "content",
		"post-content", "entry-content", "post-body", "article-text",
		"main-content", "story-content", "article", "post", "content-area",
		"main", "body",
	})
	viper.SetDefault("ingest.chunk_size", 500)
	viper.SetDefault("ingest.chunk_overlap", 100)
	viper.SetDefault("ingest.min_content_length", 50)
	viper.SetDefault("ingest.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	viper.SetDefault("ingest.parallelism", 2)
	viper.SetDefault("ingest.delay", 2*time.Second)
	viper.SetDefault("ingest.timeout", 30*time.Second)
	viper.SetDefault("ingest.cron", "")
}
