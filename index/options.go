package index

import (
	"context"
	"log/slog"
)

type Option func(*Options)

type Options struct {
	Concurrency int
	Logger      *slog.Logger
	Context     context.Context
}

// WithConcurrency bounds how many passages are embedded at once.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Concurrency: 4,
		Logger:      slog.Default(),
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
