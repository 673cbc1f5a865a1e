package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/w-h-a/doclens/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultOperation = "doclens"

type httpServer struct {
	options server.Options
	server  *http.Server
}

func (s *httpServer) Options() server.Options {
	return s.options
}

func (s *httpServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.InfoContext(ctx, "http server listening", "address", s.options.Address)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "http server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}

// Wrap applies the configured middleware around h.
func Wrap(h http.Handler, opts server.Options) http.Handler {
	ms, _ := MiddlewareFrom(opts.Context)
	for i := len(ms) - 1; i >= 0; i-- {
		h = ms[i](h)
	}
	return h
}

func NewServer(handler http.Handler, opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	return &httpServer{
		options: options,
		server: &http.Server{
			Addr:         options.Address,
			Handler:      otelhttp.NewHandler(Wrap(handler, options), OperationFrom(options.Context)),
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
		},
	}
}
