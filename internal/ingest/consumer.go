package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"lectern/internal/middleware"
)

// TaskPayload is the queue message published when a document is uploaded.
type TaskPayload struct {
	DocumentID    string `json:"document_id"`
	Path          string `json:"path"`
	PluginName    string `json:"plugin_name,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// TaskConsumer pulls ingestion tasks off NSQ and runs them through the
// pipeline, bounded by a per-document timeout.
type TaskConsumer struct {
	pipeline *Pipeline
	timeout  time.Duration
}

func NewTaskConsumer(pipeline *Pipeline, timeout time.Duration) *TaskConsumer {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &TaskConsumer{pipeline: pipeline, timeout: timeout}
}

func (h *TaskConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload TaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.DocumentID == "" || payload.Path == "" {
		slog.Error("poison pill: incomplete task", "document_id", payload.DocumentID, "path", payload.Path)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	ingestCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.pipeline.Ingest(ingestCtx, payload.DocumentID, payload.Path, payload.PluginName); err != nil {
		// The pipeline already flipped the document to failed and
		// recorded the cause; requeueing would re-run a document the
		// caller can see failed, so the message is dropped.
		slog.ErrorContext(ctx, "ingestion task failed", "document_id", payload.DocumentID, "error", err)
		return nil
	}
	return nil
}
