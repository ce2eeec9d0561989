// Package rod fetches JavaScript-rendered pages with a headless Chrome
// browser driven by go-rod.
package rod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultFetchTimeout bounds navigation, load and serialization of one page.
const DefaultFetchTimeout = 30 * time.Second

// serializeJS returns the rendered document including open shadow roots,
// which outerHTML omits. Falls back to outerHTML on browsers without getHTML.
const serializeJS = `() => {
	const roots = [];
	const walk = (root) => {
		root.querySelectorAll('*').forEach((el) => {
			if (el.shadowRoot) {
				roots.push(el.shadowRoot);
				walk(el.shadowRoot);
			}
		});
	};
	walk(document);
	const html = document.documentElement;
	if (typeof html.getHTML !== 'function') {
		return html.outerHTML;
	}
	return '<!DOCTYPE html><html>' + html.getHTML({ shadowRoots: roots }) + '</html>';
}`

// Ensure Fetcher implements webintel.Fetcher at compile time.
var _ webintel.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	browser *browser
	timeout time.Duration
	bin     string
	recycle int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the per-page timeout.
// Defaults to DefaultFetchTimeout if not specified.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithRecycleAfter replaces the Chrome process after n rendered pages.
// Defaults to DefaultRecycleAfter.
func WithRecycleAfter(n int64) Option {
	return func(f *Fetcher) {
		f.recycle = n
	}
}

// WithBrowserBin runs the Chrome or Chromium binary at path instead of the
// one go-rod finds or downloads.
func WithBrowserBin(path string) Option {
	return func(f *Fetcher) {
		f.bin = path
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(f)
	}

	b, err := startBrowser(f.bin, f.recycle)
	if err != nil {
		return nil, webintel.Errorf(webintel.EUNAVAILABLE, "headless browser unavailable: %v", err)
	}
	f.browser = b
	return f, nil
}

// Fetch navigates to the URL and returns the rendered HTML along with the
// URL the browser ended up on.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*webintel.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.render(ctx, url)
	if err != nil {
		// rod wraps context errors inconsistently; report the context's own.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	f.browser.done()
	return res, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (*webintel.FetchResult, error) {
	browser, err := f.browser.acquire()
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "fetcher is closed: %v", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	// Navigation failures are network errors, so they stay retryable.
	if err := page.Navigate(url); err != nil {
		return nil, webintel.Errorf(webintel.EUNAVAILABLE, "navigating to %s: %v", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, webintel.Errorf(webintel.EUNAVAILABLE, "loading %s: %v", url, err)
	}

	var html string
	if res, err := page.Eval(serializeJS); err == nil {
		html = res.Value.Str()
	} else {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if html, err = page.HTML(); err != nil {
			return nil, err
		}
	}

	final := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		final = info.URL
	}
	return &webintel.FetchResult{URL: final, HTML: html}, nil
}

// LauncherPID returns the process ID of the running Chrome launcher, or 0
// after Close.
func (f *Fetcher) LauncherPID() int {
	return f.browser.pid()
}

// Recycles reports how many times the Chrome process has been replaced.
func (f *Fetcher) Recycles() int {
	return f.browser.recycled()
}

// Close stops Chrome. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	return f.browser.close()
}
