package crawl

import (
	"context"
	"strings"

	"github.com/fwojciec/webintel"
)

// Ensure Pipeline implements webintel.PageFetcher at compile time.
var _ webintel.PageFetcher = (*Pipeline)(nil)

// Pipeline turns raw HTML into a Page: it fetches the URL, collects its
// links, extracts the main content, and converts that content to Markdown.
type Pipeline struct {
	Fetcher   webintel.Fetcher
	Links     webintel.LinkExtractor
	Extractor webintel.Extractor

	// Fallback supplies title and body when Extractor fails or finds no
	// main content, which happens on short or unusual pages.
	Fallback webintel.Extractor

	Converter webintel.Converter
}

// FetchPage fetches and processes one URL.
func (p *Pipeline) FetchPage(ctx context.Context, url string) (*webintel.Page, error) {
	res, err := p.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	html := res.HTML

	page := &webintel.Page{URL: res.URL}
	if page.URL == "" {
		page.URL = url
	}

	if p.Links != nil {
		links, err := p.Links.ExtractLinks(html, page.URL)
		if err != nil {
			return nil, err
		}
		page.Links = links
	}

	extracted, err := p.extract(html)
	if err != nil {
		return nil, err
	}
	page.Title = extracted.Title

	if strings.TrimSpace(extracted.ContentHTML) == "" {
		return page, nil
	}
	if p.Converter == nil {
		page.Content = extracted.ContentHTML
		return page, nil
	}
	markdown, err := p.Converter.Convert(extracted.ContentHTML)
	if err != nil {
		return nil, err
	}
	page.Content = strings.TrimSpace(markdown)
	return page, nil
}

func (p *Pipeline) extract(html string) (*webintel.ExtractResult, error) {
	var result *webintel.ExtractResult
	var err error
	if p.Extractor != nil {
		result, err = p.Extractor.Extract(html)
		if err == nil && strings.TrimSpace(result.ContentHTML) != "" {
			return result, nil
		}
	}
	if p.Fallback != nil {
		fallback, ferr := p.Fallback.Extract(html)
		if ferr == nil {
			if result != nil && result.Title != "" && fallback.Title == "" {
				fallback.Title = result.Title
			}
			return fallback, nil
		}
		if err == nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &webintel.ExtractResult{ContentHTML: html}, nil
	}
	return result, nil
}

// Close releases the underlying fetcher.
func (p *Pipeline) Close() error {
	return p.Fetcher.Close()
}
