package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"lectern/internal/logger"
	"lectern/internal/middleware"
)

func TestContextHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewContextHandler(slog.NewJSONHandler(&buf, nil))
	log := slog.New(h)

	ctx := middleware.WithCorrelationID(context.Background(), "corr-1")
	log.InfoContext(ctx, "hello")

	var entry map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-1", entry["correlation_id"])
}

func TestContextHandler_NoCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewContextHandler(slog.NewJSONHandler(&buf, nil))
	log := slog.New(h)

	log.InfoContext(context.Background(), "hello")

	var entry map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, present := entry["correlation_id"]
	assert.False(t, present)
}
