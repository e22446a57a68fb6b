package app

import (
	"context"

	"lectern/internal/ingest"
	"lectern/internal/rag"
)

// MockVectorStore is a configurable VectorStore for tests in this package
// and in callers wiring the app together.
type MockVectorStore struct {
	EnsureSchemaErr error
	UpsertErr       error
	DeleteErr       error
	SearchResults   []rag.SearchResult
	SearchErr       error
	Contents        []string
	ContentsErr     error
	ChunkCount      int
	CountErr        error

	Upserted []ingest.TextChunk
	Deleted  []string
}

func (m *MockVectorStore) EnsureSchema(ctx context.Context) error { return m.EnsureSchemaErr }

func (m *MockVectorStore) UpsertBatch(ctx context.Context, chunks []ingest.TextChunk) error {
	m.Upserted = append(m.Upserted, chunks...)
	return m.UpsertErr
}

func (m *MockVectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.Deleted = append(m.Deleted, documentID)
	return m.DeleteErr
}

func (m *MockVectorStore) SearchByVector(ctx context.Context, vector []float32, documentID string, limit int) ([]rag.SearchResult, error) {
	return m.SearchResults, m.SearchErr
}

func (m *MockVectorStore) ChunkContents(ctx context.Context, documentID string) ([]string, error) {
	return m.Contents, m.ContentsErr
}

func (m *MockVectorStore) CountChunks(ctx context.Context) (int, error) {
	return m.ChunkCount, m.CountErr
}
