package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/w-h-a/doclens/internal/service"
)

func TestClientAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.20:5555"
	req.Header.Set("X-Forwarded-For", " 203.0.113.50 , 10.0.0.1")

	assert.Equal(t, "198.51.100.20", clientAddress(req, false))
	assert.Equal(t, "203.0.113.50", clientAddress(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "198.51.100.20", clientAddress(req, true))
}

func TestBearer(t *testing.T) {
	tok, ok := bearer("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = bearer("bearer ")
	assert.False(t, ok)

	_, ok = bearer("Token abc")
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.NewError(service.ErrInvalidInput, "", nil), http.StatusBadRequest},
		{service.NewError(service.ErrNotFound, "", nil), http.StatusNotFound},
		{service.NewError(service.ErrQuotaExceeded, "", nil), http.StatusTooManyRequests},
		{service.NewError(service.ErrUnsupportedFormat, "", nil), http.StatusBadRequest},
		{service.NewError(service.ErrEmptyExtraction, "", nil), http.StatusBadRequest},
		{service.NewError(service.ErrPayloadTooLarge, "", nil), http.StatusRequestEntityTooLarge},
		{service.NewError(service.ErrRetrieval, "", nil), http.StatusBadGateway},
		{service.NewError(service.ErrSynthesis, "", nil), http.StatusBadGateway},
		{service.NewError(service.ErrForbidden, "", nil), http.StatusForbidden},
		{service.NewError(service.ErrUnauthenticated, "", nil), http.StatusUnauthorized},
		{service.NewError(service.ErrInternal, "", nil), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", service.NewError(service.ErrNotFound, "", nil)), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestRecover(t *testing.T) {
	h := Recover(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
