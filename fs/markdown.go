package fs

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/webintel"
	"gopkg.in/yaml.v3"
)

const (
	frontMatterDelim = "---"
	markerPrefix     = "<!-- webintel:page "
	markerSuffix     = " -->"
	statusOK         = "ok"
	statusFailed     = "failed"
)

var (
	markerLine  = regexp.MustCompile(`(?m)^<!-- webintel:page (.*) -->$`)
	markerAttr  = regexp.MustCompile(`([a-z_]+)="((?:[^"\\]|\\.)*)"`)
	escapedLine = regexp.MustCompile(`(?m)^(\\*)<!-- webintel:page `)
)

// frontMatter is the YAML header of a markdown report.
type frontMatter struct {
	RootURL      string    `yaml:"root_url"`
	StartedAt    time.Time `yaml:"started_at"`
	CompletedAt  time.Time `yaml:"completed_at"`
	MaxDepth     int       `yaml:"max_depth"`
	TotalPages   int       `yaml:"total_pages"`
	SuccessCount int       `yaml:"success_count"`
	FailureCount int       `yaml:"failure_count"`
	SuccessRate  string    `yaml:"success_rate"`
}

// MarshalMarkdown renders a report as a human-readable markdown document
// that UnmarshalMarkdown can parse back.
//
// Each page starts with a marker comment carrying its metadata. Content
// lines that would be mistaken for a marker are escaped with a backslash.
func MarshalMarkdown(report *webintel.CrawlReport) ([]byte, error) {
	fm := frontMatter{
		RootURL:      report.RootURL,
		StartedAt:    report.StartedAt.UTC(),
		CompletedAt:  report.CompletedAt.UTC(),
		MaxDepth:     report.MaxDepth,
		TotalPages:   len(report.Pages),
		SuccessCount: report.SuccessCount,
		FailureCount: report.FailureCount,
		SuccessRate:  fmt.Sprintf("%.1f%%", report.SuccessRate()),
	}
	header, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINTERNAL, "encoding front matter: %v", err)
	}

	var b bytes.Buffer
	b.WriteString(frontMatterDelim + "\n")
	b.Write(header)
	b.WriteString(frontMatterDelim + "\n\n")

	fmt.Fprintf(&b, "# Crawl Result: %s\n\n", report.RootURL)
	fmt.Fprintf(&b, "**Crawled at:** %s\n", report.CompletedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Total pages:** %d\n", len(report.Pages))
	fmt.Fprintf(&b, "**Success rate:** %s\n\n", fm.SuccessRate)

	for _, p := range report.Pages {
		b.WriteString(formatMarker(p))
		b.WriteString("\n")
		b.WriteString(escapeContent(p.Content))
		b.WriteString("\n\n")
	}
	return b.Bytes(), nil
}

// UnmarshalMarkdown parses a document written by MarshalMarkdown.
// Returns EINVALID if data is not a markdown crawl report.
func UnmarshalMarkdown(data []byte) (*webintel.CrawlReport, error) {
	text := string(data)
	if !strings.HasPrefix(text, frontMatterDelim+"\n") {
		return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report: missing front matter")
	}
	rest := text[len(frontMatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
	if end < 0 {
		return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report: unterminated front matter")
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report: %v", err)
	}
	if fm.RootURL == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report: root_url missing")
	}

	report := &webintel.CrawlReport{
		RootURL:     fm.RootURL,
		MaxDepth:    fm.MaxDepth,
		StartedAt:   fm.StartedAt,
		CompletedAt: fm.CompletedAt,
		Pages:       []*webintel.PageResult{},
	}

	body := rest[end+len(frontMatterDelim)+2:]
	matches := markerLine.FindAllStringSubmatchIndex(body, -1)
	for i, m := range matches {
		page, err := parseMarker(body[m[2]:m[3]])
		if err != nil {
			return nil, err
		}

		start := m[1] + 1 // skip the newline ending the marker line
		stop := len(body)
		if i+1 < len(matches) {
			stop = matches[i+1][0]
		}
		if start > stop {
			start = stop
		}
		page.Content = unescapeContent(strings.TrimSuffix(body[start:stop], "\n\n"))
		report.Add(page)
	}

	if len(report.Pages) != fm.TotalPages {
		return nil, webintel.Errorf(webintel.EINVALID, "corrupt crawl report: header lists %d pages, found %d", fm.TotalPages, len(report.Pages))
	}
	return report, nil
}

func formatMarker(p *webintel.PageResult) string {
	status := statusOK
	if !p.Success {
		status = statusFailed
	}

	var b strings.Builder
	b.WriteString(markerPrefix)
	writeAttr(&b, "url", p.URL)
	writeAttr(&b, "title", p.Title)
	writeAttr(&b, "depth", strconv.Itoa(p.Depth))
	writeAttr(&b, "status", status)
	if !p.FetchedAt.IsZero() {
		writeAttr(&b, "fetched_at", p.FetchedAt.UTC().Format(time.RFC3339Nano))
	}
	if p.ContentHash != "" {
		writeAttr(&b, "hash", p.ContentHash)
	}
	if p.ErrorReason != "" {
		writeAttr(&b, "error", p.ErrorReason)
	}
	return strings.TrimSuffix(b.String(), " ") + markerSuffix
}

func writeAttr(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(strconv.Quote(value))
	b.WriteString(" ")
}

func parseMarker(attrs string) (*webintel.PageResult, error) {
	page := &webintel.PageResult{}
	for _, m := range markerAttr.FindAllStringSubmatch(attrs, -1) {
		value, err := strconv.Unquote(`"` + m[2] + `"`)
		if err != nil {
			return nil, webintel.Errorf(webintel.EINVALID, "corrupt page marker %q: %v", attrs, err)
		}
		switch m[1] {
		case "url":
			page.URL = value
		case "title":
			page.Title = value
		case "depth":
			page.Depth, err = strconv.Atoi(value)
		case "status":
			page.Success = value == statusOK
		case "fetched_at":
			page.FetchedAt, err = time.Parse(time.RFC3339Nano, value)
		case "hash":
			page.ContentHash = value
		case "error":
			page.ErrorReason = value
		}
		if err != nil {
			return nil, webintel.Errorf(webintel.EINVALID, "corrupt page marker %q: %v", attrs, err)
		}
	}
	if page.URL == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "corrupt page marker %q: url missing", attrs)
	}
	return page, nil
}

// escapeContent prefixes marker-like lines with one backslash.
func escapeContent(s string) string {
	return escapedLine.ReplaceAllString(s, `\${1}`+markerPrefix)
}

// unescapeContent removes the backslash added by escapeContent.
func unescapeContent(s string) string {
	return escapedLine.ReplaceAllStringFunc(s, func(line string) string {
		if strings.HasPrefix(line, `\`) {
			return line[1:]
		}
		return line
	})
}
