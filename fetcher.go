package webintel

import "context"

// FetchResult is the raw response for one fetched URL.
type FetchResult struct {
	// URL is where the document was served from after redirects. Relative
	// links in HTML resolve against it, not against the requested URL.
	URL  string
	HTML string
}

// Fetcher retrieves raw HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the URL and returns its HTML and final URL.
	// The context controls timeout and cancellation; an expired deadline
	// is reported as a timeout by the caller.
	//
	// Permanent failures (4xx, non-HTML responses) are EFETCH; server-side
	// failures worth retrying (5xx, 408, 429) are EUNAVAILABLE.
	Fetch(ctx context.Context, url string) (*FetchResult, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
