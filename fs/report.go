// Package fs stores crawl reports and conversation sessions as plain files
// under a storage root.
//
// Layout:
//
//	<root>/crawls/<host>_<YYYYmmdd_HHMMSS>.md|.json
//	<root>/sessions/<id>.json
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/webintel"
)

// Directory names under the storage root.
const (
	CrawlsDir   = "crawls"
	SessionsDir = "sessions"
)

// Ensure ReportStore implements webintel.ReportStore at compile time.
var _ webintel.ReportStore = (*ReportStore)(nil)

// ReportStore reads and writes crawl reports as markdown or JSON files.
type ReportStore struct {
	root string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewReportStore creates a ReportStore rooted at root.
func NewReportStore(root string) *ReportStore {
	return &ReportStore{root: root, Now: time.Now}
}

// SaveReport writes the report atomically and returns the path written.
// An empty path selects <root>/crawls/<host>_<timestamp><ext>.
func (s *ReportStore) SaveReport(ctx context.Context, report *webintel.CrawlReport, path string, format webintel.ReportFormat) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if report == nil {
		return "", webintel.Errorf(webintel.EINVALID, "report required")
	}

	if path == "" {
		path = filepath.Join(s.root, CrawlsDir, ReportName(report.RootURL, s.Now())+format.Ext())
	}

	var data []byte
	var err error
	switch format {
	case webintel.FormatJSON:
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", webintel.Errorf(webintel.EINTERNAL, "encoding report: %v", err)
		}
		data = append(data, '\n')
	default:
		data, err = MarshalMarkdown(report)
		if err != nil {
			return "", err
		}
	}

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", webintel.Errorf(webintel.ESTORAGE, "writing report %s: %v", path, err)
	}
	return path, nil
}

// LoadReport reads a report. Files ending in .json are decoded as JSON;
// anything else is parsed as a markdown report.
func (s *ReportStore) LoadReport(ctx context.Context, path string) (*webintel.CrawlReport, error) {
	data, err := s.read(ctx, path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var report webintel.CrawlReport
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report: %s: %v", path, err)
		}
		if report.RootURL == "" {
			return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report: %s: root_url missing", path)
		}
		if report.Pages == nil {
			report.Pages = []*webintel.PageResult{}
		}
		return &report, nil
	}

	report, err := UnmarshalMarkdown(data)
	if err != nil {
		return nil, webintel.Errorf(webintel.ErrorCode(err), "%s: %s", path, webintel.ErrorMessage(err))
	}
	return report, nil
}

// LoadContent returns the file's raw content.
func (s *ReportStore) LoadContent(ctx context.Context, path string) (string, error) {
	data, err := s.read(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *ReportStore) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, webintel.Errorf(webintel.ENOTFOUND, "source file %s not found", path)
	}
	if err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "reading %s: %v", path, err)
	}
	return data, nil
}

// ReportName returns the default file stem for a crawl of rootURL started
// at t: the host with unsafe characters replaced, then a timestamp.
func ReportName(rootURL string, t time.Time) string {
	host := "crawl"
	if u, err := url.Parse(rootURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, host)
	return host + "_" + t.Format("20060102_150405")
}
