package parsers

import (
	"strings"
)

// maxExcerptLines bounds how much of a failing command's output is kept
// as a finding's excerpt.
const maxExcerptLines = 30

// HeadLines returns the first n non-empty lines of combined output,
// bounding how much raw text a finding carries.
func HeadLines(combined string, n int) []string {
	if n <= 0 {
		n = maxExcerptLines
	}
	lines := strings.Split(combined, "\n")
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
		if len(out) >= n {
			break
		}
	}
	return out
}
