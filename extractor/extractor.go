package extractor

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmpty             = errors.New("document contains no extractable text")
)

type Result struct {
	Text   string
	Pages  int
	Method string
}

type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (Result, error)
}
