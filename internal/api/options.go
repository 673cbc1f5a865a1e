package api

import (
	"context"
	"log/slog"

	"github.com/w-h-a/doclens/identity"
	"github.com/w-h-a/doclens/internal/metrics"
	"github.com/w-h-a/doclens/internal/service/ingest"
	"golang.org/x/time/rate"
)

type Option func(*Options)

type Options struct {
	Verifier       identity.Verifier
	TrustProxy     bool
	MaxUploadBytes int64
	RateLimit      rate.Limit
	Burst          int
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Context        context.Context
}

func WithVerifier(v identity.Verifier) Option {
	return func(o *Options) {
		o.Verifier = v
	}
}

// WithTrustProxy identifies guests by the first X-Forwarded-For hop.
func WithTrustProxy(trust bool) Option {
	return func(o *Options) {
		o.TrustProxy = trust
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(o *Options) {
		o.MaxUploadBytes = n
	}
}

// WithRateLimit caps requests per caller. A zero limit disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Options) {
		o.RateLimit = rate.Limit(perSecond)
		o.Burst = burst
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
		MaxUploadBytes: ingest.DefaultMaxBytes,
		RateLimit:      2,
		Burst:          10,
		Logger:         slog.Default(),
		Context:        context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
