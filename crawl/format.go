package crawl

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns the xxhash64 of content as 16 hex digits. Reports use
// it to spot pages whose content is unchanged between crawls.
func ContentHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// TruncateURL shortens a URL for progress lines. The scheme is dropped first;
// if the rest is still longer than maxLen, its tail is kept behind "...".
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if _, rest, ok := strings.Cut(url, "://"); ok {
		url = rest
	}
	if len(url) <= maxLen {
		return url
	}
	if maxLen <= 3 {
		return url[:maxLen]
	}
	return "..." + url[len(url)-(maxLen-3):]
}

// FormatBytes renders a byte count with one decimal in the largest fitting
// binary unit.
func FormatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n)
	unit := ""
	for _, u := range []string{"KB", "MB", "GB"} {
		value /= 1024
		unit = u
		if value < 1024 {
			break
		}
	}
	return fmt.Sprintf("%.1f %s", value, unit)
}

// FormatDuration rounds a duration to a precision that suits its size.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// FormatTokens renders an approximate token count, in thousands from 1000 up.
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("~%d tokens", tokens)
	}
	return fmt.Sprintf("~%dk tokens", (tokens+500)/1000)
}
