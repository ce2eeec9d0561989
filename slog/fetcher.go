// Package slog decorates webintel services with structured logging.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/webintel"
)

// Ensure LoggingFetcher implements webintel.Fetcher.
var _ webintel.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with per-request logging.
type LoggingFetcher struct {
	next   webintel.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next webintel.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL, response size and duration of each fetch, and the
// final URL when the request was redirected.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (res *webintel.FetchResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", url}
		var size int
		if res != nil {
			size = len(res.HTML)
			if res.URL != url {
				attrs = append(attrs, "final_url", res.URL)
			}
		}
		attrs = append(attrs, "bytes", size, "duration", time.Since(begin), "err", err)
		f.logger.Debug("fetch", attrs...)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}

// Ensure LoggingPageFetcher implements webintel.PageFetcher.
var _ webintel.PageFetcher = (*LoggingPageFetcher)(nil)

// LoggingPageFetcher wraps a PageFetcher, logging one line per processed page.
type LoggingPageFetcher struct {
	next   webintel.PageFetcher
	logger *slog.Logger
}

// NewLoggingPageFetcher creates a new LoggingPageFetcher.
func NewLoggingPageFetcher(next webintel.PageFetcher, logger *slog.Logger) *LoggingPageFetcher {
	return &LoggingPageFetcher{next: next, logger: logger}
}

// FetchPage logs the URL, content size and link count of each page.
func (f *LoggingPageFetcher) FetchPage(ctx context.Context, url string) (page *webintel.Page, err error) {
	defer func(begin time.Time) {
		var chars, links int
		if page != nil {
			chars, links = len(page.Content), len(page.Links)
		}
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		f.logger.Log(ctx, level, "page",
			"url", url,
			"chars", chars,
			"links", links,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.FetchPage(ctx, url)
}
