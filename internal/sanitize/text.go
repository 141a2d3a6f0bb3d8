package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxExcerptRunes caps excerpts and contexts attached to findings.
const MaxExcerptRunes = 240

// Excerpt trims a source line and caps it at MaxExcerptRunes characters.
func Excerpt(line string) string {
	return truncate(strings.TrimSpace(line), MaxExcerptRunes)
}

// Flatten joins lines into one whitespace-normalized string capped at
// MaxExcerptRunes characters.
func Flatten(lines []string) string {
	return truncate(strings.Join(strings.Fields(strings.Join(lines, " ")), " "), MaxExcerptRunes)
}

// Inline strips control characters so hostile file names or source text
// cannot move the cursor or inject lines when written to a terminal or a
// workflow command stream.
func Inline(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\n', '\r', '\t':
			b.WriteRune(' ')
		default:
			if r == utf8.RuneError || unicode.IsControl(r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
