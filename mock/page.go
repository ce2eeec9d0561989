package mock

import (
	"context"

	"github.com/fwojciec/webintel"
)

// Compile-time interface verification.
var (
	_ webintel.PageFetcher   = (*PageFetcher)(nil)
	_ webintel.LinkExtractor = (*LinkExtractor)(nil)
)

// PageFetcher is a mock implementation of webintel.PageFetcher.
type PageFetcher struct {
	FetchPageFn func(ctx context.Context, url string) (*webintel.Page, error)
}

func (f *PageFetcher) FetchPage(ctx context.Context, url string) (*webintel.Page, error) {
	return f.FetchPageFn(ctx, url)
}

// LinkExtractor is a mock implementation of webintel.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]string, error) {
	return e.ExtractLinksFn(html, baseURL)
}
