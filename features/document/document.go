package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"lectern/internal/config"
	"lectern/internal/ingest"
	"lectern/internal/middleware"
	"lectern/internal/rag"
)

type Document struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	StoredPath   string  `json:"-"`
	ContentHash  string  `json:"-"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	ChunkCount   int     `json:"chunk_count"`
	DocumentType string  `json:"document_type,omitempty"`
	PluginName   string  `json:"plugin_name,omitempty"`
	CourseID     *string `json:"course_id,omitempty"`
	Week         *int    `json:"week,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Pipeline-facing status updates.
	SetStatus(ctx context.Context, documentID, status string) error
	SetFailure(ctx context.Context, documentID, errorMessage string) error
	SetIngestResult(ctx context.Context, documentID, rawText string, chunkCount int) error

	// RAG-facing context resolution.
	DocumentContext(ctx context.Context, documentID string) (*rag.DocumentContext, error)
}

type ChunkStore interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo       Repository
	pub        EventPublisher
	chunkStore ChunkStore
}

func NewService(repo Repository, pub EventPublisher, chunkStore ChunkStore) *Service {
	return &Service{repo: repo, pub: pub, chunkStore: chunkStore}
}

// Upload persists a pending document row and queues it for ingestion.
func (s *Service) Upload(ctx context.Context, doc *Document) (*Document, error) {
	doc.Status = ingest.StatusPending
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(ingest.TaskPayload{
		DocumentID:    doc.ID,
		Path:          doc.StoredPath,
		PluginName:    doc.PluginName,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIngestTask, payload); err != nil {
		slog.Error("failed to publish ingest.task event", "error", err, "document_id", doc.ID)
	} else {
		slog.Info("published ingest.task event", "document_id", doc.ID, "filename", doc.Filename)
	}

	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// Delete removes the document row, its indexed chunks, and the stored
// file.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.chunkStore.DeleteByDocument(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if doc.StoredPath != "" {
		if err := os.Remove(doc.StoredPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove stored file", "error", err, "document_id", id)
		}
	}
	return nil
}
