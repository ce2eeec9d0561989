// Package goquery parses HTML pages with goquery: it collects outbound links
// and provides a simple title-plus-body extractor.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/webintel"
)

// Ensure Parser implements the webintel interfaces at compile time.
var (
	_ webintel.LinkExtractor = (*Parser)(nil)
	_ webintel.Extractor     = (*Parser)(nil)
)

// noiseSelector matches elements that never carry readable content.
const noiseSelector = "script, style, noscript, svg, iframe, nav, header, footer, aside, form"

// Parser extracts links and readable content from HTML.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ExtractLinks returns the absolute URL of every <a href> in document order.
// Relative hrefs are resolved against baseURL (or a <base href> element),
// fragments are stripped, non-HTTP links are skipped, and duplicates are
// removed keeping the first occurrence. Scope decisions such as same-origin
// filtering are left to the caller.
func (p *Parser) ExtractLinks(html string, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "failed to parse HTML: %v", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	seen := make(map[string]struct{})
	links := []string{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})

	return links, nil
}

// Extract returns the page title and the body HTML with navigation,
// scripts and other chrome removed. The title comes from <title>, falling
// back to the first <h1>. Prefers <main> or <article> when present.
func (p *Parser) Extract(html string) (*webintel.ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "failed to parse HTML: %v", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find(noiseSelector).Remove()

	body, err := content.Html()
	if err != nil {
		return nil, webintel.Errorf(webintel.EINTERNAL, "failed to render HTML: %v", err)
	}

	return &webintel.ExtractResult{
		Title:       title,
		ContentHTML: strings.TrimSpace(body),
	}, nil
}

// resolveURL resolves href against base and strips the fragment.
// Returns an empty string if href cannot be parsed or does not resolve to
// an http(s) URL.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
