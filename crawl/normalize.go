package crawl

import (
	"net/url"
	"strings"
)

// NormalizeURL resolves href against base and returns the canonical form
// used for deduplication: lowercase scheme and host, no default port,
// no fragment, and "/" for an empty path.
// The bool result is false for links that cannot be crawled
// (unparseable, or a scheme other than http and https).
// A nil base requires href to be absolute.
func NormalizeURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || isNonHTTPLink(href) {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), true
}

// sameOrigin reports whether two normalized URLs share scheme and host.
func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
