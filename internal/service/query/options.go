package query

import (
	"context"
	"log/slog"

	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/internal/metrics"
)

const (
	DefaultMaxQuestionLength = 500
	DefaultTopK              = 3
)

type Option func(*Options)

type Options struct {
	MaxQuestionLength int
	TopK              int
	SystemInstruction string
	Recorder          history.Recorder
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	Context           context.Context
}

func WithMaxQuestionLength(n int) Option {
	return func(o *Options) {
		o.MaxQuestionLength = n
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func WithSystemInstruction(s string) Option {
	return func(o *Options) {
		o.SystemInstruction = s
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
		MaxQuestionLength: DefaultMaxQuestionLength,
		TopK:              DefaultTopK,
		SystemInstruction: SystemInstruction,
		Logger:            slog.Default(),
		Context:           context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
