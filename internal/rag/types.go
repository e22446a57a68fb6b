package rag

import "context"

// SearchResult is one retrieved chunk with its similarity to the query.
type SearchResult struct {
	Content    string
	Similarity float64
	Metadata   map[string]interface{}
}

// Searcher runs vector similarity queries, optionally scoped to one
// document.
type Searcher interface {
	SearchByVector(ctx context.Context, vector []float32, documentID string, limit int) ([]SearchResult, error)
	ChunkContents(ctx context.Context, documentID string) ([]string, error)
}

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLM generates a completion for a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
