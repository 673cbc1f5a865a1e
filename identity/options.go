package identity

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	Context  context.Context
}

func WithSecret(secret string) Option {
	return func(o *Options) {
		o.Secret = []byte(secret)
	}
}

func WithIssuer(iss string) Option {
	return func(o *Options) {
		o.Issuer = iss
	}
}

func WithAudience(aud string) Option {
	return func(o *Options) {
		o.Audience = aud
	}
}

func WithLeeway(d time.Duration) Option {
	return func(o *Options) {
		o.Leeway = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Leeway:  30 * time.Second,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
