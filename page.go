package webintel

import "context"

// Page is the processed form of one fetched URL: its title, main content as
// Markdown, and every outbound link found on it.
type Page struct {
	URL     string // where the page was served from, after redirects
	Title   string
	Content string // Markdown
	Links   []string
}

// PageFetcher retrieves a URL and turns it into a Page.
// Implementations hide HTTP vs browser selection, content extraction,
// markdown conversion, and link discovery.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*Page, error)
}

// LinkExtractor finds outbound links in an HTML document.
type LinkExtractor interface {
	// ExtractLinks returns absolute http(s) URLs in document order.
	// Relative links are resolved against baseURL and fragments are stripped.
	ExtractLinks(html string, baseURL string) ([]string, error)
}
