// Package trafilatura extracts the main content of a web page with
// go-trafilatura, dropping navigation, comments and other boilerplate.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/webintel"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements webintel.Extractor at compile time.
var _ webintel.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
type Extractor struct {
	opts trafilatura.Options
}

// Option configures an Extractor.
type Option func(*trafilatura.Options)

// WithComments keeps user comment sections in the extracted content.
func WithComments() Option {
	return func(o *trafilatura.Options) {
		o.ExcludeComments = false
	}
}

// WithImages keeps <img> elements in the extracted content.
func WithImages() Option {
	return func(o *trafilatura.Options) {
		o.IncludeImages = true
	}
}

// NewExtractor creates a new Extractor. Comments are excluded and links
// are kept unless options say otherwise.
func NewExtractor(opts ...Option) *Extractor {
	o := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		IncludeLinks:    true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Extractor{opts: o}
}

// Extract processes raw HTML and returns the main content.
// A page without recognizable main content yields an empty ContentHTML
// rather than an error so that callers can fall back to another extractor.
func (e *Extractor) Extract(rawHTML string) (*webintel.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "extracting content: %v", err)
	}

	out := &webintel.ExtractResult{Title: strings.TrimSpace(result.Metadata.Title)}
	if result.ContentNode != nil {
		out.ContentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return nil, webintel.Errorf(webintel.EINTERNAL, "rendering content: %v", err)
		}
	}
	return out, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
