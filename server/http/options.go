package http

import (
	"context"
	"net/http"

	"github.com/w-h-a/doclens/server"
)

type (
	middlewareKey struct{}
	operationKey  struct{}
)

// WithMiddleware wraps the handler in ms. The first middleware is outermost.
func WithMiddleware(ms ...func(h http.Handler) http.Handler) server.Option {
	return func(o *server.Options) {
		o.Context = context.WithValue(o.Context, middlewareKey{}, ms)
	}
}

func MiddlewareFrom(ctx context.Context) ([]func(h http.Handler) http.Handler, bool) {
	ms, ok := ctx.Value(middlewareKey{}).([]func(h http.Handler) http.Handler)
	return ms, ok
}

// WithOperation names the server spans recorded for each request.
func WithOperation(name string) server.Option {
	return func(o *server.Options) {
		o.Context = context.WithValue(o.Context, operationKey{}, name)
	}
}

func OperationFrom(ctx context.Context) string {
	name, ok := ctx.Value(operationKey{}).(string)
	if !ok || len(name) == 0 {
		return defaultOperation
	}
	return name
}
