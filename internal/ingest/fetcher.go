package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Page is one fetched document.
type Page struct {
	URL  string
	Body []byte
}

// FetcherConfig bounds the scraper's behavior toward the news site.
type FetcherConfig struct {
	UserAgent   string
	Parallelism int
	Delay       time.Duration
	Timeout     time.Duration
}

// Fetcher downloads a fixed set of pages with colly. Failures are per-URL:
// an unreachable page is logged and skipped, never fatal for the cycle.
type Fetcher struct {
	cfg    FetcherConfig
	logger log.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig, logger log.Logger) *Fetcher {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// FetchAll downloads the given URLs and returns the pages that succeeded,
// in no particular order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Page {
	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.Async(true),
	)
	c.SetRequestTimeout(f.cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.Parallelism,
		Delay:       f.cfg.Delay,
	}); err != nil {
		f.logger.Warn("setting scraper limits failed", "error", err)
	}

	var mu sync.Mutex
	var pages []Page

	c.OnResponse(func(r *colly.Response) {
		body := make([]byte, len(r.Body))
		copy(body, r.Body)

		mu.Lock()
		pages = append(pages, Page{URL: r.Request.URL.String(), Body: body})
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {
		f.logger.Warn("fetching page failed", "url", r.Request.URL.String(), "error", err)
	})

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		if err := c.Visit(u); err != nil {
			f.logger.Warn("visiting url failed", "url", u, "error", err)
		}
	}
	c.Wait()

	return pages
}

// FetchOne downloads a single page, best-effort.
func (f *Fetcher) FetchOne(ctx context.Context, url string) (Page, bool) {
	pages := f.FetchAll(ctx, []string{url})
	if len(pages) == 0 {
		return Page{}, false
	}
	return pages[0], true
}
