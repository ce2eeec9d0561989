package webintel

import (
	"context"
	"strings"
	"time"
)

// CrawlTarget is a URL queued at a specific traversal depth.
type CrawlTarget struct {
	URL   string
	Depth int
}

// PageResult is the outcome of fetching one CrawlTarget.
type PageResult struct {
	URL           string    `json:"url"`
	Title         string    `json:"title,omitempty"`
	Content       string    `json:"content"`
	OutboundLinks []string  `json:"outbound_links,omitempty"`
	Depth         int       `json:"depth"`
	FetchedAt     time.Time `json:"fetched_at"`
	Success       bool      `json:"success"`
	ErrorReason   string    `json:"error,omitempty"`
	ContentHash   string    `json:"content_hash,omitempty"`
}

// ReasonTimeout is the ErrorReason recorded when a fetch exceeds its timeout.
const ReasonTimeout = "Timeout"

// CrawlReport aggregates every PageResult of one crawl run.
// Pages are in discovery (breadth-first) order.
type CrawlReport struct {
	RootURL      string        `json:"root_url"`
	MaxDepth     int           `json:"max_depth"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Pages        []*PageResult `json:"pages"`
}

// Add appends a page and updates the counters.
func (r *CrawlReport) Add(page *PageResult) {
	r.Pages = append(r.Pages, page)
	if page.Success {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
}

// SuccessRate returns the percentage of pages fetched successfully.
func (r *CrawlReport) SuccessRate() float64 {
	if len(r.Pages) == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(len(r.Pages)) * 100
}

// Duration returns how long the crawl took.
func (r *CrawlReport) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Sources returns the (url, content) pairs of successful pages in report order.
func (r *CrawlReport) Sources() []Source {
	sources := make([]Source, 0, r.SuccessCount)
	for _, p := range r.Pages {
		if !p.Success {
			continue
		}
		sources = append(sources, Source{URL: p.URL, Content: p.Content})
	}
	return sources
}

// Source is one page of stored crawl content.
type Source struct {
	URL     string
	Content string
}

// FormatSources joins sources into the single text block given to the model.
// Each source is introduced by a "--- From: <url> ---" line.
func FormatSources(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}

	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, "--- From: "+s.URL+" ---\n"+s.Content)
	}
	return strings.Join(parts, "\n\n")
}

// ReportFormat selects the on-disk rendering of a CrawlReport.
type ReportFormat string

// Supported report formats.
const (
	FormatMarkdown ReportFormat = "markdown"
	FormatJSON     ReportFormat = "json"
)

// Ext returns the file extension used for the format.
func (f ReportFormat) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".md"
}

// ParseReportFormat validates a format name.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(s)) {
	case FormatMarkdown, "md", "":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", Errorf(EINVALID, "unknown report format %q (use markdown or json)", s)
}

// ReportStore persists crawl reports as addressable files.
type ReportStore interface {
	// SaveReport writes the report in the given format and returns its path.
	// An empty path selects a generated name under the store's root.
	SaveReport(ctx context.Context, report *CrawlReport, path string, format ReportFormat) (string, error)

	// LoadReport reads a report written by SaveReport in either format.
	// Returns ENOTFOUND if the file does not exist, EINVALID if it is not a
	// crawl report and ESTORAGE if it cannot be read.
	LoadReport(ctx context.Context, path string) (*CrawlReport, error)

	// LoadContent returns the raw file content.
	LoadContent(ctx context.Context, path string) (string, error)
}
