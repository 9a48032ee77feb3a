package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessAndError(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, []string{"a"})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":["a"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "bad feed")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"bad feed"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Text(rec, http.StatusOK, "OK")
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		err       error
		wantLevel string
	}{
		{"server failure", http.StatusBadGateway, fmt.Errorf("check incidents: %w", errors.New("connection refused")), "level=ERROR"},
		{"client mistake", http.StatusNotFound, errors.New(`unknown feed "x"`), "level=DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			ctx := ctxlog.WithLogger(context.Background(), logger)

			rec := httptest.NewRecorder()
			WriteError(ctx, rec, tt.status, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body, err := json.Marshal(map[string]any{"error": map[string]string{"message": tt.err.Error()}})
			require.NoError(t, err)
			assert.JSONEq(t, string(body), rec.Body.String())
			assert.Contains(t, buf.String(), tt.wantLevel)
		})
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var inner *slog.Logger
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLoggerMiddleware(base))
	r.Get("/x", func(w http.ResponseWriter, r *http.Request) {
		inner = ctxlog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.NotNil(t, inner)
	assert.NotSame(t, slog.Default(), inner)
	assert.Contains(t, buf.String(), "request_id=")
	assert.Contains(t, buf.String(), "status=418")
}

func TestMetricsMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/api/v1/checks/{feed}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checks/incidents", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
