package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTTLs maps each class to its lifetime. Classes missing from the
// table never expire.
var DefaultTTLs = map[Class]time.Duration{
	ClassGuest:  24 * time.Hour,
	ClassMember: 7 * 24 * time.Hour,
}

type Option func(*Options)

type Options struct {
	TTLs    map[Class]time.Duration
	Clock   func() time.Time
	Logger  *slog.Logger
	Context context.Context
}

func WithTTL(class Class, ttl time.Duration) Option {
	return func(o *Options) {
		o.TTLs[class] = ttl
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

func NewOptions(opts ...Option) Options {
	ttls := make(map[Class]time.Duration, len(DefaultTTLs))
	for class, ttl := range DefaultTTLs {
		ttls[class] = ttl
	}

	options := Options{
		TTLs:    ttls,
		Clock:   time.Now,
		Logger:  slog.Default(),
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
