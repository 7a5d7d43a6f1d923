package enhancer

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Enhancer turns a short phrase into a description of how it will look twenty
// years from now. Implementations always return some text.
type Enhancer interface {
	Enhance(ctx context.Context, text string) string
}

// Normalize applies NFC, drops control characters and trims surrounding
// whitespace. Newlines and tabs are folded into spaces.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, text)
	return strings.TrimSpace(text)
}
