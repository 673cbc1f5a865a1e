package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/w-h-a/doclens/internal/metrics"
	"github.com/w-h-a/doclens/internal/service/session"
)

// DefaultQuotas caps guests at two uploads per UTC day and leaves members
// unlimited. A quota of zero or less means unlimited.
var DefaultQuotas = map[session.Class]int{
	session.ClassGuest:  2,
	session.ClassMember: 0,
}

type Option func(*Options)

type Options struct {
	Quotas  map[session.Class]int
	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Context context.Context
}

func WithQuota(class session.Class, quota int) Option {
	return func(o *Options) {
		o.Quotas[class] = quota
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
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
	quotas := make(map[session.Class]int, len(DefaultQuotas))
	for class, q := range DefaultQuotas {
		quotas[class] = q
	}

	options := Options{
		Quotas:  quotas,
		Clock:   time.Now,
		Logger:  slog.Default(),
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
