package mock

import (
	"context"

	"github.com/fwojciec/webintel"
)

var _ webintel.ReportStore = (*ReportStore)(nil)

// ReportStore is a mock implementation of webintel.ReportStore.
type ReportStore struct {
	SaveReportFn  func(ctx context.Context, report *webintel.CrawlReport, path string, format webintel.ReportFormat) (string, error)
	LoadReportFn  func(ctx context.Context, path string) (*webintel.CrawlReport, error)
	LoadContentFn func(ctx context.Context, path string) (string, error)
}

func (s *ReportStore) SaveReport(ctx context.Context, report *webintel.CrawlReport, path string, format webintel.ReportFormat) (string, error) {
	return s.SaveReportFn(ctx, report, path, format)
}

func (s *ReportStore) LoadReport(ctx context.Context, path string) (*webintel.CrawlReport, error) {
	return s.LoadReportFn(ctx, path)
}

func (s *ReportStore) LoadContent(ctx context.Context, path string) (string, error) {
	return s.LoadContentFn(ctx, path)
}
