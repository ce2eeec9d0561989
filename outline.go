package webintel

import (
	"strings"
)

// Heading is one Markdown heading of a page.
type Heading struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// Outline returns the ATX headings (# through ######) of a Markdown page
// down to maxLevel, in document order. Lines inside fenced code blocks are
// ignored. A maxLevel outside 1-6 means all levels.
func Outline(markdown string, maxLevel int) []Heading {
	if maxLevel < 1 || maxLevel > 6 {
		maxLevel = 6
	}

	var headings []Heading
	fence := ""
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = trimmed[:3]
			continue
		}

		level, title, ok := parseHeading(trimmed)
		if !ok || level > maxLevel {
			continue
		}
		headings = append(headings, Heading{Level: level, Title: title})
	}
	return headings
}

func parseHeading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(line) || (line[level] != ' ' && line[level] != '\t') {
		return 0, "", false
	}
	// Closing hashes are optional decoration.
	title := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line[level:]), "#"))
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}
