package ingest

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Extractor pulls article text out of fetched HTML.
type Extractor struct {
	contentClasses []string
	minLength      int // in runes
	logger         log.Logger
}

// NewExtractor creates an Extractor scanning the given CSS classes in order.
func NewExtractor(contentClasses []string, minLength int, logger log.Logger) *Extractor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Extractor{
		contentClasses: contentClasses,
		minLength:      minLength,
		logger:         logger,
	}
}

// Extract returns the article text of an HTML page, or "" when nothing long
// enough could be found.
//
// It first collects text from the configured content-region classes. When no
// region matches, or the combined region text is shorter than the minimum,
// it falls back to whole-page readability extraction. Results below the
// minimum length are discarded either way.
func (e *Extractor) Extract(pageURL string, html []byte) string {
	if text := e.fromRegions(html); e.longEnough(text) {
		return text
	}

	text := e.fromReadability(pageURL, html)
	if e.longEnough(text) {
		return text
	}

	e.logger.Debug("page yielded no usable content", "url", pageURL)
	return ""
}

func (e *Extractor) longEnough(text string) bool {
	return utf8.RuneCountInString(text) >= e.minLength
}

// fromRegions joins the text of every matching content-region class.
func (e *Extractor) fromRegions(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		e.logger.Debug("parsing HTML failed", "error", err)
		return ""
	}

	var parts []string
	for _, class := range e.contentClasses {
		doc.Find("." + class).Each(func(_ int, sel *goquery.Selection) {
			if text := normalizeWhitespace(sel.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		// First matching class wins; later classes are broader catch-alls.
		if len(parts) > 0 {
			break
		}
	}
	return strings.Join(parts, "\n\n")
}

// fromReadability runs whole-page article extraction.
func (e *Extractor) fromReadability(pageURL string, html []byte) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}
	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err != nil {
		e.logger.Debug("readability extraction failed", "url", pageURL, "error", err)
		return ""
	}
	return normalizeWhitespace(article.TextContent)
}

// normalizeWhitespace collapses runs of whitespace inside lines and trims
// blank lines, keeping paragraph breaks.
func normalizeWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
