package history

import (
	"context"
	"log/slog"

	"github.com/w-h-a/doclens/embedder"
)

type Option func(*Options)

// DefaultCapacity bounds each in-process history list.
const DefaultCapacity = 10000

type Options struct {
	Location string
	Embedder embedder.Embedder
	Capacity int
	Logger   *slog.Logger
	Context  context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

// WithEmbedder enables SimilarQueries by embedding each saved question.
func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

// WithCapacity caps how many documents and how many questions the in-memory
// recorder keeps. The oldest entries are dropped first.
func WithCapacity(n int) Option {
	return func(o *Options) {
		o.Capacity = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Capacity: DefaultCapacity,
		Logger:   slog.Default(),
		Context:  context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
