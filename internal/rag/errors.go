package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrNoContent means no text could be resolved for the document
	// from cache, index, or re-extraction.
	ErrNoContent = errors.New("document has no extractable text")
)

// LLMError wraps a provider failure during generation.
type LLMError struct {
	Err error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm generation failed: %v", e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }
