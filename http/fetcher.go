// Package http provides an HTTP-based implementation of webintel.Fetcher
// for fetching content from static sites that don't require JavaScript rendering.
package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/webintel"
	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
// Kept consistent with rod.DefaultFetchTimeout.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent identifies the crawler to remote servers.
const DefaultUserAgent = "webintel/1.0 (+https://github.com/fwojciec/webintel)"

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 10 << 20

// Ensure Fetcher implements webintel.Fetcher at compile time.
var _ webintel.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML content from URLs using HTTP requests.
// Unlike rod.Fetcher, this does not execute JavaScript and is suitable
// for static sites only.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize limits the number of body bytes read per response.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithClient replaces the underlying HTTP client. The timeout option is
// ignored when a client is supplied.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultFetchTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}

	return f
}

// Fetch retrieves the HTML content from the given URL, following redirects.
// The body is decoded to UTF-8 using the declared or sniffed charset.
// Server errors, 408 and 429 are EUNAVAILABLE; other non-2xx responses and
// non-HTML content are EFETCH.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*webintel.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "invalid URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := webintel.EFETCH
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout {
			code = webintel.EUNAVAILABLE
		}
		return nil, webintel.Errorf(code, "HTTP %d for %s", resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		return nil, webintel.Errorf(webintel.EFETCH, "%s is not an HTML page (%s)", url, contentType)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, webintel.Errorf(webintel.EFETCH, "decoding %s: %v", url, err)
	}
	html, err := io.ReadAll(body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, webintel.Errorf(webintel.EUNAVAILABLE, "reading body of %s: %v", url, err)
	}

	// resp.Request is the last request of the redirect chain.
	return &webintel.FetchResult{
		URL:  resp.Request.URL.String(),
		HTML: strings.ToValidUTF8(string(html), "\uFFFD"),
	}, nil
}

// isTextual accepts HTML, XHTML and other text responses, and responses that
// do not declare a type. Links to PDFs, images and archives are rejected
// before their bodies are read.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return strings.HasPrefix(mediaType, "text/") || strings.HasSuffix(mediaType, "+xml") ||
		mediaType == "application/xml"
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
