// Package crawl provides depth-bounded website crawling.
// It coordinates the frontier, per-level concurrent fetching, and
// aggregation of page results into a CrawlReport.
package crawl

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/fwojciec/webintel"
	"golang.org/x/sync/errgroup"
)

// Frontier configuration.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate for deduplication.
	frontierFalsePositiveRate = 0.01
)

// Crawler defaults.
const (
	DefaultConcurrency  = 5
	DefaultMaxPages     = 1000
	DefaultFetchTimeout = 30 * time.Second
)

// Crawler performs breadth-first crawls from a root URL.
type Crawler struct {
	Pages       webintel.PageFetcher
	RateLimiter webintel.DomainLimiter

	// SameOrigin restricts the crawl to the root URL's scheme and host.
	SameOrigin bool

	// Filter restricts which discovered links are followed.
	Filter *webintel.URLFilter

	// Concurrency bounds parallel fetches within one depth level.
	Concurrency int

	// MaxPages stops the crawl once this many pages have been recorded.
	MaxPages int

	// FetchTimeout bounds each fetch attempt. Exceeding it records "Timeout".
	FetchTimeout time.Duration

	// RetryDelays are the waits between attempts. nil uses DefaultRetryDelays;
	// an empty slice disables retries.
	RetryDelays []time.Duration

	Logger LogFunc

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ProgressEvent reports progress during a crawl operation.
type ProgressEvent struct {
	Type      ProgressType
	Depth     int
	Completed int
	Total     int
	URL       string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	// ProgressStarted is sent when a depth level begins; Total is the level size.
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Crawl fetches rootURL and follows links breadth-first up to maxDepth hops.
//
// Individual fetch failures are recorded in the report and never abort the
// crawl. If no page at all is fetched successfully, the report is returned
// together with an ECRAWLFAILED error. If ctx is canceled, the pages
// collected so far are returned with the context error.
func (c *Crawler) Crawl(ctx context.Context, rootURL string, maxDepth int, progress ProgressFunc) (*webintel.CrawlReport, error) {
	if maxDepth < 0 {
		return nil, webintel.Errorf(webintel.EINVALID, "max depth must not be negative, got %d", maxDepth)
	}
	root, ok := NormalizeURL(nil, rootURL)
	if !ok {
		return nil, webintel.Errorf(webintel.EINVALID, "invalid root URL %q: must be an absolute http or https URL", rootURL)
	}
	rootParsed, err := url.Parse(root)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "invalid root URL %q: %v", rootURL, err)
	}

	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	frontier.Push(webintel.CrawlTarget{URL: root, Depth: 0})

	report := &webintel.CrawlReport{
		RootURL:   root,
		MaxDepth:  maxDepth,
		StartedAt: c.now(),
		Pages:     []*webintel.PageResult{},
	}

	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var tracker progressTracker
	tracker.fn = progress

	for frontier.Len() > 0 {
		if ctx.Err() != nil {
			break
		}

		level := frontier.PopLevel()
		remaining := maxPages - len(report.Pages)
		if remaining <= 0 {
			break
		}
		if len(level) > remaining {
			level = level[:remaining]
		}

		tracker.send(ProgressEvent{Type: ProgressStarted, Depth: level[0].Depth, Total: len(level)})
		results := c.fetchLevel(ctx, level, rootParsed, &tracker)

		// Results are indexed by discovery order, so appending them in slice
		// order keeps the report deterministic regardless of completion order.
		for _, r := range results {
			if r == nil {
				continue
			}
			page := r.page
			if r.finalURL != page.URL {
				frontier.Visit(r.finalURL)
				// A redirected root (http to https, bare host to www)
				// defines the scope for the rest of the crawl.
				if page.Depth == 0 && page.Success {
					if u, err := url.Parse(r.finalURL); err == nil {
						rootParsed = u
					}
				}
			}
			report.Add(page)
			if !page.Success || page.Depth >= maxDepth {
				continue
			}
			base, err := url.Parse(r.finalURL)
			if err != nil {
				continue
			}
			for _, link := range page.OutboundLinks {
				next, ok := NormalizeURL(base, link)
				if !ok || !c.inScope(rootParsed, next) {
					continue
				}
				frontier.Push(webintel.CrawlTarget{URL: next, Depth: page.Depth + 1})
			}
		}
	}

	report.CompletedAt = c.now()
	tracker.send(ProgressEvent{Type: ProgressFinished, Completed: len(report.Pages), Total: len(report.Pages)})

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.SuccessCount == 0 {
		reason := "no pages fetched"
		if len(report.Pages) > 0 {
			reason = report.Pages[0].ErrorReason
		}
		return report, webintel.Errorf(webintel.ECRAWLFAILED, "crawl of %s failed: %s", root, reason)
	}
	return report, nil
}

// fetched is the outcome of one target. finalURL is where the page was
// served from, after redirects; links on the page resolve against it.
type fetched struct {
	page     *webintel.PageResult
	finalURL string
}

// redirectedOutOfScope turns a page whose redirect left the crawl scope into
// a failure, so content from elsewhere is never recorded under page.URL.
func redirectedOutOfScope(page *webintel.PageResult, finalURL string) {
	page.Success = false
	page.ErrorReason = "redirected outside the crawl scope to " + finalURL
	page.Title = ""
	page.Content = ""
	page.ContentHash = ""
	page.OutboundLinks = nil
}

// fetchLevel fetches every target of one depth level concurrently.
// The returned slice is indexed like level. Entries are nil for targets
// abandoned because ctx was canceled.
func (c *Crawler) fetchLevel(ctx context.Context, level []webintel.CrawlTarget, root *url.URL, tracker *progressTracker) []*fetched {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*fetched, len(level))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, target := range level {
		g.Go(func() error {
			r, canceled := c.fetchPage(ctx, target, root)
			if canceled {
				return nil
			}
			results[i] = r
			page := r.page
			if page.Success {
				tracker.completed(page.URL, nil)
			} else {
				tracker.completed(page.URL, errors.New(page.ErrorReason))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchPage fetches one target and converts the outcome into a PageResult.
// Pages below the root that redirect out of scope are recorded as failures.
// The bool result is true if the fetch was abandoned because ctx was canceled.
func (c *Crawler) fetchPage(ctx context.Context, target webintel.CrawlTarget, root *url.URL) (*fetched, bool) {
	result := &webintel.PageResult{
		URL:   target.URL,
		Depth: target.Depth,
	}
	out := &fetched{page: result, finalURL: target.URL}

	if err := WaitURL(ctx, c.RateLimiter, target.URL); err != nil {
		if ctx.Err() != nil {
			return nil, true
		}
		result.FetchedAt = c.now()
		result.ErrorReason = failureReason(err)
		return out, false
	}

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	page, err := FetchWithRetryDelays[*webintel.Page](ctx, target.URL, c.fetchOnce, c.Logger, delays)
	result.FetchedAt = c.now()
	if err != nil {
		if ctx.Err() != nil {
			return nil, true
		}
		result.ErrorReason = failureReason(err)
		return out, false
	}

	if final, ok := NormalizeURL(nil, page.URL); ok {
		out.finalURL = final
	}
	result.Success = true
	result.Title = page.Title
	result.Content = page.Content
	result.OutboundLinks = page.Links
	result.ContentHash = ContentHash(page.Content)

	if target.Depth > 0 && out.finalURL != target.URL && !c.inScope(root, out.finalURL) {
		redirectedOutOfScope(result, out.finalURL)
	}
	return out, false
}

// fetchOnce runs a single fetch attempt under the per-page timeout.
func (c *Crawler) fetchOnce(ctx context.Context, url string) (*webintel.Page, error) {
	timeout := c.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := c.Pages.FetchPage(ctx, url)
	if err != nil {
		// A fetcher may ignore ctx and return its own error after the deadline.
		if ctx.Err() == context.DeadlineExceeded {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return page, nil
}

func (c *Crawler) inScope(root *url.URL, link string) bool {
	if c.SameOrigin {
		u, err := url.Parse(link)
		if err != nil || !sameOrigin(root, u) {
			return false
		}
	}
	return c.Filter.Match(link)
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// failureReason maps a fetch error to the reason recorded in a PageResult.
func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return webintel.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return webintel.ReasonTimeout
	}
	return webintel.ErrorMessage(err)
}

// progressTracker serializes progress callbacks from concurrent fetches.
type progressTracker struct {
	mu    sync.Mutex
	fn    ProgressFunc
	count int
}

func (t *progressTracker) send(event ProgressEvent) {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn(event)
}

func (t *progressTracker) completed(url string, err error) {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	event := ProgressEvent{Type: ProgressCompleted, Completed: t.count, URL: url}
	if err != nil {
		event.Type = ProgressFailed
		event.Error = err
	}
	t.fn(event)
}
