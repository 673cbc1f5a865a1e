package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/w-h-a/doclens/identity"
	"github.com/w-h-a/doclens/internal/service"
)

type callerKey struct{}

func WithCaller(ctx context.Context, caller service.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) service.Caller {
	caller, _ := ctx.Value(callerKey{}).(service.Caller)
	return caller
}

// Authenticate resolves the caller. A bearer token must verify; requests
// without one are guests keyed by their address.
func Authenticate(verifier identity.Verifier, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := service.Caller{Address: clientAddress(r, trustProxy)}

			if header := r.Header.Get("Authorization"); len(header) > 0 {
				if verifier == nil {
					writeError(w, r, logger, service.NewError(service.ErrUnauthenticated, "sign-in is not enabled on this server", nil))
					return
				}

				token, ok := bearer(header)
				if !ok {
					writeError(w, r, logger, service.NewError(service.ErrUnauthenticated, "invalid authorization header", nil))
					return
				}

				principal, err := verifier.Verify(r.Context(), token)
				if err != nil {
					writeError(w, r, logger, service.NewError(service.ErrUnauthenticated, "invalid or expired token", err))
					return
				}

				caller.AccountID = principal.AccountID
				caller.Email = principal.Email
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic serving request", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
					writeJSON(w, http.StatusInternalServerError, errorResponse{
						Error: service.ErrInternal.Error(),
						Kind:  service.ErrInternal.Error(),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func Log(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.DebugContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, len(token) > 0
}

func clientAddress(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); len(fwd) > 0 {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); len(first) > 0 {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
