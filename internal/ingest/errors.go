package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound means the uploaded file is gone from disk.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFormat means no registered plugin handles the file.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// EmbeddingError wraps a failure from the embedding provider. Nothing is
// indexed when embedding fails.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexWriteError wraps a failure writing chunks to the vector store.
type IndexWriteError struct {
	Err error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index write failed: %v", e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }
