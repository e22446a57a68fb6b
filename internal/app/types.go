package app

import (
	"context"

	"lectern/internal/ingest"
	"lectern/internal/rag"
)

// Database is satisfied by *sql.DB. Repositories need the concrete type,
// so New casts it back; the interface exists so tests can assert on what
// Bootstrap hands over.
type Database interface {
	Ping() error
	Close() error
}

// VectorStore is the full surface the application needs from the chunk
// index. *weaviateadapter.Store implements it.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertBatch(ctx context.Context, chunks []ingest.TextChunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	SearchByVector(ctx context.Context, vector []float32, documentID string, limit int) ([]rag.SearchResult, error)
	ChunkContents(ctx context.Context, documentID string) ([]string, error)
	CountChunks(ctx context.Context) (int, error)
}

// TaskPublisher is satisfied by *nsq.Producer.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}
