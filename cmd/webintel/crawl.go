package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/crawl"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	if c.Depth < 0 || c.Depth > deps.Config.CrawlerMaxDepth {
		return reportError(deps,
			webintel.Errorf(webintel.EINVALID, "depth must be between 0 and %d, got %d", deps.Config.CrawlerMaxDepth, c.Depth),
			"raise --crawler-max-depth (at most 10) to crawl deeper")
	}
	format, err := webintel.ParseReportFormat(c.Format)
	if err != nil {
		return reportError(deps, err, "")
	}
	filter, err := webintel.NewURLFilter(c.Include, c.Exclude)
	if err != nil {
		return reportError(deps, err, "")
	}

	deps.Crawler.SameOrigin = c.SameOrigin
	deps.Crawler.Filter = filter
	deps.Crawler.MaxPages = c.MaxPages
	if c.Concurrency > 0 {
		deps.Crawler.Concurrency = c.Concurrency
	}

	fmt.Fprintf(deps.Stderr, "Crawling %s (depth %d)\n", c.URL, c.Depth)
	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stderr, "  depth %d: %d %s\n", event.Depth, event.Total, plural(event.Total, "page"))
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", crawl.TruncateURL(event.URL, 80), webintel.ErrorMessage(event.Error))
		}
	}

	report, err := deps.Crawler.Crawl(deps.Ctx, c.URL, c.Depth, progress)
	if report == nil || report.SuccessCount == 0 {
		if err == nil {
			err = webintel.Errorf(webintel.ECRAWLFAILED, "no pages could be fetched from %s", c.URL)
		}
		return reportError(deps, err, hintFor(err, deps.Config))
	}
	interrupted := err
	if interrupted != nil && !errors.Is(interrupted, deps.Ctx.Err()) {
		return reportError(deps, interrupted, hintFor(interrupted, deps.Config))
	}

	// Save with a fresh context so an interrupted crawl still keeps its pages.
	path, err := deps.Reports.SaveReport(context.WithoutCancel(deps.Ctx), report, c.Output, format)
	if err != nil {
		return reportError(deps, err, hintFor(err, deps.Config))
	}

	var size int
	for _, p := range report.Pages {
		size += len(p.Content)
	}
	fmt.Fprintf(deps.Stdout, "Saved %s\n", path)
	fmt.Fprintf(deps.Stdout, "  %d %s (%d ok, %d failed, %s success) in %s, %s\n",
		len(report.Pages), plural(len(report.Pages), "page"),
		report.SuccessCount, report.FailureCount,
		strconv.FormatFloat(report.SuccessRate(), 'f', 1, 64)+"%",
		crawl.FormatDuration(report.Duration()), crawl.FormatBytes(size))

	if interrupted != nil {
		return reportError(deps, interrupted, "crawl interrupted; the pages fetched so far were saved")
	}
	fmt.Fprintf(deps.Stdout, "Ask about it: webintel ask \"your question\" -s %s\n", path)
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
