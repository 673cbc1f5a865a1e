package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/w-h-a/doclens/extractor"
)

const method = "pdf-text"

var magic = []byte("%PDF-")

type pdfExtractor struct{}

func (e *pdfExtractor) Extract(ctx context.Context, name string, data []byte) (res extractor.Result, err error) {
	if !bytes.HasPrefix(data, magic) {
		return extractor.Result{}, fmt.Errorf("%w: %s is not a pdf", extractor.ErrUnsupportedFormat, name)
	}

	if err := ctx.Err(); err != nil {
		return extractor.Result{}, err
	}

	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			res = extractor.Result{}
			err = fmt.Errorf("%w: malformed pdf: %v", extractor.ErrUnsupportedFormat, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return extractor.Result{}, fmt.Errorf("%w: %w", extractor.ErrUnsupportedFormat, err)
	}

	pages := reader.NumPage()

	plain, err := reader.GetPlainText()
	if err != nil {
		return extractor.Result{Pages: pages, Method: method}, fmt.Errorf("%w: %w", extractor.ErrEmpty, err)
	}

	b, err := io.ReadAll(plain)
	if err != nil {
		return extractor.Result{}, err
	}

	text := string(b)
	if len(strings.TrimSpace(text)) == 0 {
		return extractor.Result{Pages: pages, Method: method}, extractor.ErrEmpty
	}

	return extractor.Result{
		Text:   text,
		Pages:  pages,
		Method: method,
	}, nil
}

func NewExtractor() extractor.Extractor {
	return &pdfExtractor{}
}
