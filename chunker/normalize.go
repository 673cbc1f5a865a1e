package chunker

import (
	"strings"
	"unicode"
)

// Normalize folds line endings, drops control characters, collapses runs of
// horizontal whitespace and keeps at most one blank line between paragraphs.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, text)

	var b strings.Builder
	b.Grow(len(cleaned))

	blank := false
	wrote := false

	for _, line := range strings.Split(cleaned, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			blank = wrote
			continue
		}

		if wrote {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}

		b.WriteString(strings.Join(fields, " "))
		wrote = true
		blank = false
	}

	return b.String()
}
