package ingest

import (
	"context"

	"lectern/internal/parser"
	"lectern/internal/text"
)

// TextChunk is a chunk of document text ready for (or carrying) an
// embedding vector.
type TextChunk struct {
	DocumentID     string
	Content        string
	SequenceNumber int
	PageNumber     *int
	ChapterNumber  *int
	ChapterTitle   string
	ContentType    string
	Vector         []float32
}

// Embedder produces embedding vectors for text. Dimension reports the
// configured vector width, or 0 when the provider does not pin one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ChunkIndex writes embedded chunks to the vector store.
type ChunkIndex interface {
	UpsertBatch(ctx context.Context, chunks []TextChunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// DocumentStore is the slice of document persistence the pipeline needs.
type DocumentStore interface {
	SetStatus(ctx context.Context, documentID, status string) error
	SetFailure(ctx context.Context, documentID, errorMessage string) error
	SetIngestResult(ctx context.Context, documentID, rawText string, chunkCount int) error
}

// PluginResolver selects a parser plugin for a file.
type PluginResolver interface {
	ForFile(path, pluginName string) (parser.Plugin, error)
}

// Chunker splits extracted text into embedding-sized pieces.
type Chunker interface {
	ChunkText(input string) []text.Chunk
	ChunkPages(pages []text.Page) []text.Chunk
}
