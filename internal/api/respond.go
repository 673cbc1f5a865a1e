package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/w-h-a/doclens/internal/service"
)

var statuses = []struct {
	kind   error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrQuotaExceeded, http.StatusTooManyRequests},
	{service.ErrUnsupportedFormat, http.StatusBadRequest},
	{service.ErrEmptyExtraction, http.StatusBadRequest},
	{service.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
	{service.ErrRetrieval, http.StatusBadGateway},
	{service.ErrSynthesis, http.StatusBadGateway},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrUnauthenticated, http.StatusUnauthorized},
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := Status(err)
	ctx := r.Context()

	switch {
	case status == http.StatusBadGateway:
		logger.WarnContext(ctx, "upstream failure", "method", r.Method, "path", r.URL.Path, "error", err)
	case status >= http.StatusInternalServerError:
		logger.ErrorContext(ctx, "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case status == http.StatusNotFound:
		logger.DebugContext(ctx, "not found", "path", r.URL.Path, "error", err)
	default:
		logger.InfoContext(ctx, "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{
		Error: service.Message(err),
		Kind:  service.Kind(err).Error(),
	})
}
