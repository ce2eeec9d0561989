package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/crawl"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	report, err := deps.Reports.LoadReport(deps.Ctx, c.Source)
	if err != nil {
		return reportError(deps, err, hintFor(err, deps.Config))
	}

	fmt.Fprintf(deps.Stdout, "Crawl of %s\n", report.RootURL)
	fmt.Fprintf(deps.Stdout, "  Crawled:  %s (%s)\n", report.StartedAt.Local().Format("2006-01-02 15:04:05"), crawl.FormatDuration(report.Duration()))
	fmt.Fprintf(deps.Stdout, "  Depth:    %d\n", report.MaxDepth)
	fmt.Fprintf(deps.Stdout, "  Pages:    %d (%d ok, %d failed, %s%% success)\n",
		len(report.Pages), report.SuccessCount, report.FailureCount,
		strconv.FormatFloat(report.SuccessRate(), 'f', 1, 64))

	tokens := webintel.EstimateTokens(webintel.FormatSources(report.Sources()))
	fmt.Fprintf(deps.Stdout, "  Content:  %s\n\n", crawl.FormatTokens(tokens))

	for _, p := range report.Pages {
		status := "ok    "
		if !p.Success {
			status = "failed"
		}
		line := fmt.Sprintf("  [%d] %s %s", p.Depth, status, p.URL)
		if p.Title != "" {
			line += "  " + p.Title
		}
		if p.ErrorReason != "" {
			line += "  (" + p.ErrorReason + ")"
		}
		fmt.Fprintln(deps.Stdout, line)
		if c.Outline > 0 {
			for _, h := range webintel.Outline(p.Content, c.Outline) {
				fmt.Fprintf(deps.Stdout, "      %s%s\n", strings.Repeat("  ", h.Level-1), h.Title)
			}
		}
		if c.Full && p.Success {
			fmt.Fprintf(deps.Stdout, "\n%s\n\n", p.Content)
		}
	}
	return nil
}
