package document

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"lectern/internal/middleware"
	"lectern/internal/parser"
	"lectern/internal/rag"
)

type Handler struct {
	service   *Service
	rag       *rag.Service
	registry  *parser.Registry
	uploadDir string
	maxBytes  int64
}

func NewHandler(service *Service, ragService *rag.Service, registry *parser.Registry, uploadDir string, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{
		service:   service,
		rag:       ragService,
		registry:  registry,
		uploadDir: uploadDir,
		maxBytes:  int64(maxUploadMB) << 20,
	}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	pluginName := r.FormValue("plugin_name")
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if pluginName == "" {
		if _, err := h.registry.ByIdentifier(ext); err != nil {
			h.writeError(r.Context(), w, "UNSUPPORTED_FORMAT", fmt.Sprintf("No parser registered for %s", ext), http.StatusBadRequest)
			return
		}
	} else if _, err := h.registry.ByName(pluginName); err != nil {
		h.writeError(r.Context(), w, "UNSUPPORTED_FORMAT", fmt.Sprintf("Unknown parser plugin %s", pluginName), http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		slog.Error("failed to create upload directory", "error", err, "path", filepath.Clean(h.uploadDir))
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to create upload directory", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(h.uploadDir, filename))

	dst, err := os.Create(path) // #nosec G304 -- path is constructed from UUID + sanitized basename, not user-controlled
	if err != nil {
		slog.Error("failed to create file", "error", err, "path", path)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to save file", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	// Calculate hash while copying
	hash := sha256.New()
	mw := io.MultiWriter(dst, hash)
	if _, err := io.Copy(mw, file); err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to write file", http.StatusInternalServerError)
		return
	}

	doc := &Document{
		Filename:     header.Filename,
		StoredPath:   path,
		ContentHash:  fmt.Sprintf("%x", hash.Sum(nil)),
		DocumentType: r.FormValue("document_type"),
		PluginName:   pluginName,
	}
	if courseID := r.FormValue("course_id"); courseID != "" {
		doc.CourseID = &courseID
	}
	if weekStr := r.FormValue("week"); weekStr != "" {
		if week, err := strconv.Atoi(weekStr); err == nil {
			doc.Week = &week
		}
	}

	created, err := h.service.Upload(r.Context(), doc)
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			slog.Warn("failed to clean up uploaded file", "error", removeErr, "path", filepath.Clean(path))
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": created}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if docs == nil {
		docs = []Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": docs,
		"meta": map[string]int{"count": len(docs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": doc}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Question(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
		return
	}

	result, err := h.rag.AnswerQuestion(r.Context(), id, req.Question)
	if err != nil {
		h.writeRAGError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.rag.Summarize(r.Context(), id)
	if err != nil {
		h.writeRAGError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": result}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Plugins lists the registered parser plugins and their extensions.
func (h *Handler) Plugins(w http.ResponseWriter, r *http.Request) {
	plugins := h.registry.List()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": plugins,
		"meta": map[string]interface{}{
			"count":             len(plugins),
			"supported_formats": h.registry.SupportedFormats(),
		},
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeRAGError(ctx context.Context, w http.ResponseWriter, err error) {
	var llmErr *rag.LLMError
	switch {
	case errors.Is(err, rag.ErrNotFound):
		h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
	case errors.Is(err, rag.ErrNoContent):
		h.writeError(ctx, w, "NO_CONTENT", "Document has no extractable text", http.StatusUnprocessableEntity)
	case errors.As(err, &llmErr):
		slog.ErrorContext(ctx, "llm request failed", "error", err)
		h.writeError(ctx, w, "LLM_ERROR", "Language model request failed", http.StatusBadGateway)
	default:
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
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
