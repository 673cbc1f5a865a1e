package ingest

import (
	"context"
	"log/slog"

	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/internal/metrics"
)

const DefaultMaxBytes = 50 << 20

type Option func(*Options)

type Options struct {
	MaxBytes     int64
	ChunkSize    int
	ChunkOverlap int
	Formats      []string
	Recorder     history.Recorder
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Context      context.Context
}

func WithMaxBytes(n int64) Option {
	return func(o *Options) {
		o.MaxBytes = n
	}
}

func WithChunking(size, overlap int) Option {
	return func(o *Options) {
		o.ChunkSize = size
		o.ChunkOverlap = overlap
	}
}

// WithFormats restricts uploads to the given file extensions.
func WithFormats(exts ...string) Option {
	return func(o *Options) {
		o.Formats = exts
	}
}

func WithRecorder(r history.Recorder) Option {
	return func(o *Options) {
		o.Recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxBytes:     DefaultMaxBytes,
		ChunkSize:    chunker.DefaultSize,
		ChunkOverlap: chunker.DefaultOverlap,
		Formats:      []string{".pdf", ".txt", ".md"},
		Logger:       slog.Default(),
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
