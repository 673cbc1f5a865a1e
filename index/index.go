package index

import (
	"context"
	"errors"

	"github.com/w-h-a/doclens/chunker"
)

var (
	ErrEmptyIndex = errors.New("index needs at least one passage")
	ErrInvalidK   = errors.New("k must be positive")
	ErrEmptyQuery = errors.New("query is empty")
	ErrBuild      = errors.New("failed to build index")
	ErrSearch     = errors.New("failed to search index")
)

type Hit struct {
	Passage chunker.Passage `json:"passage"`
	Score   float64         `json:"score"`
}

// Index answers top-k relevance queries over a fixed set of passages. It is
// immutable once built and safe for concurrent searches.
type Index interface {
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	Len() int
}

type Builder interface {
	Build(ctx context.Context, passages []chunker.Passage) (Index, error)
}
