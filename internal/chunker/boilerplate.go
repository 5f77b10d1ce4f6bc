package chunker

import (
	"regexp"
	"strings"
)

var (
	// linkLineRe matches a line that is a single markdown link, with
	// an optional list bullet.
	linkLineRe = regexp.MustCompile(`^\s*[-*]?\s*\[.*?\]\(.*?\)\s*$`)

	// legalMarkers flag short copyright / legal footers.
	legalMarkers = []string{"all rights reserved", "terms of service", "privacy policy"}
)

// isBoilerplate identifies chunks too low-value to index: navigation
// link farms and short legal footers. A long legal text the user chose
// to index passes through.
func isBoilerplate(trimmed string) bool {
	lines := nonEmptyLines(trimmed)

	if len(lines) > 2 {
		linkCount := 0
		for _, line := range lines {
			if linkLineRe.MatchString(line) {
				linkCount++
			}
		}
		if float64(linkCount)/float64(len(lines)) > 0.7 {
			return true
		}
	}

	if len(trimmed) < 200 {
		lower := strings.ToLower(trimmed)
		if strings.Contains(trimmed, "©") {
			return true
		}
		for _, marker := range legalMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}

	return false
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
