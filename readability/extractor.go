// Package readability extracts article content with go-readability, the Go
// port of the Firefox Reader View algorithm.
package readability

import (
	"strings"

	"github.com/fwojciec/webintel"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements webintel.Extractor at compile time.
var _ webintel.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
// Readability fails on pages it cannot score; that failure is reported as
// empty content so the caller's fallback extractor takes over.
func (e *Extractor) Extract(rawHTML string) (*webintel.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return &webintel.ExtractResult{}, nil
	}

	return &webintel.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: strings.TrimSpace(article.Content),
	}, nil
}
