package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lectern/internal/middleware"
	"lectern/internal/rag"
)

type Handler struct {
	rag *rag.Service
}

func NewHandler(ragService *rag.Service) *Handler {
	return &Handler{rag: ragService}
}

// Ask runs a corpus-wide RAG query, optionally narrowed to a document.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question   string `json:"question"`
		TopK       int    `json:"top_k"`
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
		return
	}

	result, err := h.rag.Query(r.Context(), req.Question, req.TopK, req.DocumentID)
	if err != nil {
		var llmErr *rag.LLMError
		if errors.As(err, &llmErr) {
			slog.ErrorContext(r.Context(), "llm request failed", "error", err)
			h.writeError(r.Context(), w, "LLM_ERROR", "Language model request failed", http.StatusBadGateway)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
