package text

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/w-h-a/doclens/extractor"
)

const method = "text"

type textExtractor struct{}

func (e *textExtractor) Extract(ctx context.Context, name string, data []byte) (extractor.Result, error) {
	if err := ctx.Err(); err != nil {
		return extractor.Result{}, err
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	text = strings.TrimPrefix(text, "\ufeff")

	if len(strings.TrimSpace(text)) == 0 {
		return extractor.Result{Method: method}, extractor.ErrEmpty
	}

	// form feeds separate pages in plain text exports
	pages := strings.Count(strings.TrimRight(text, "\f"), "\f") + 1

	return extractor.Result{
		Text:   strings.ReplaceAll(text, "\f", "\n\n"),
		Pages:  pages,
		Method: method,
	}, nil
}

func NewExtractor() extractor.Extractor {
	return &textExtractor{}
}
