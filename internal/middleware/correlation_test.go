package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"lectern/internal/middleware"
)

func TestCorrelationID_GeneratesWhenMissing(t *testing.T) {
	var captured string
	handler := middleware.CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetCorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/documents", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get("X-Correlation-ID"))
}

func TestCorrelationID_RespectsHeader(t *testing.T) {
	var captured string
	handler := middleware.CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/documents", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc-123", captured)
}

func TestGetCorrelationID_Unset(t *testing.T) {
	assert.Equal(t, "unknown", middleware.GetCorrelationID(context.Background()))
}

func TestWithCorrelationID(t *testing.T) {
	ctx := middleware.WithCorrelationID(context.Background(), "xyz")
	assert.Equal(t, "xyz", middleware.GetCorrelationID(ctx))
}
