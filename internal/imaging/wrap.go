package imaging

import (
	"strings"
	"unicode/utf8"
)

// DefaultCharWidth is the per-rune width estimate used by WrapText.
const DefaultCharWidth = 10

// WrapText greedily packs the whitespace-separated words of text into lines whose
// estimated width (rune count times approxCharWidth) stays strictly below
// maxWidth. A word that is too wide on its own still gets a line of its own; words
// are never split.
func WrapText(text string, maxWidth, approxCharWidth int) []string {
	if approxCharWidth <= 0 {
		approxCharWidth = DefaultCharWidth
	}

	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if estimateWidth(candidate, approxCharWidth) < maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func estimateWidth(line string, approxCharWidth int) int {
	return utf8.RuneCountInString(line) * approxCharWidth
}
