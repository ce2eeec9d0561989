package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/webintel"
	main "github.com/fwojciec/webintel/cmd/webintel"
	"github.com/fwojciec/webintel/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func showReports() *mock.ReportStore {
	started := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	report := &webintel.CrawlReport{
		RootURL:     "https://example.com/",
		MaxDepth:    1,
		StartedAt:   started,
		CompletedAt: started.Add(3 * time.Second),
	}
	report.Add(&webintel.PageResult{URL: "https://example.com/", Title: "Home", Content: "# Welcome\n\nWelcome home\n\n## Products", Success: true})
	report.Add(&webintel.PageResult{URL: "https://example.com/about", Depth: 1, Content: "About us", Success: true})
	report.Add(&webintel.PageResult{URL: "https://example.com/gone", Depth: 1, ErrorReason: "HTTP 404"})

	return &mock.ReportStore{
		LoadReportFn: func(_ context.Context, path string) (*webintel.CrawlReport, error) {
			if path != "site.md" {
				return nil, webintel.Errorf(webintel.ENOTFOUND, "crawl file not found: %s", path)
			}
			return report, nil
		},
	}
}

func TestCmdShow(t *testing.T) {
	t.Parallel()

	t.Run("summarizes a crawl", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := testDeps()
		deps.Reports = showReports()

		require.NoError(t, (&main.ShowCmd{Source: "site.md"}).Run(deps))

		out := stdout.String()
		assert.Contains(t, out, "Crawl of https://example.com/")
		assert.Contains(t, out, "Depth:    1")
		assert.Contains(t, out, "3 (2 ok, 1 failed, 66.7% success)")
		assert.Contains(t, out, "ok     https://example.com/  Home")
		assert.Contains(t, out, "failed https://example.com/gone  (HTTP 404)")
		assert.NotContains(t, out, "Welcome home")
	})

	t.Run("prints page content with --full", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := testDeps()
		deps.Reports = showReports()

		require.NoError(t, (&main.ShowCmd{Source: "site.md", Full: true}).Run(deps))
		assert.Contains(t, stdout.String(), "Welcome home")
		assert.Contains(t, stdout.String(), "About us")
	})

	t.Run("prints page outlines", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := testDeps()
		deps.Reports = showReports()

		require.NoError(t, (&main.ShowCmd{Source: "site.md", Outline: 2}).Run(deps))
		assert.Contains(t, stdout.String(), "      Welcome\n        Products\n")
		assert.NotContains(t, stdout.String(), "Welcome home")
	})

	t.Run("points at crawl when the file is missing", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := testDeps()
		deps.Reports = showReports()

		err := (&main.ShowCmd{Source: "missing.md"}).Run(deps)
		require.Error(t, err)
		assert.Equal(t, webintel.ENOTFOUND, webintel.ErrorCode(err))
		assert.Contains(t, stderr.String(), "webintel crawl")
	})
}
