package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lectern/internal/parser"
	"lectern/internal/text"
)

// Document status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// maxRawTextLen caps the extracted text persisted on the document row.
// Chunks are never truncated, only the stored copy is.
const maxRawTextLen = 500000

// Pipeline runs a document from uploaded file to indexed chunks.
type Pipeline struct {
	Documents DocumentStore
	Plugins   PluginResolver
	Chunker   Chunker
	Embedder  Embedder
	Index     ChunkIndex
}

// Ingest processes one document end to end. The document row moves from
// processing to completed or failed; every failure path records an error
// message on the row before returning.
func (p *Pipeline) Ingest(ctx context.Context, documentID, path, pluginName string) error {
	slog.InfoContext(ctx, "ingestion started", "document_id", documentID, "path", path)

	if err := p.Documents.SetStatus(ctx, documentID, StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("%w: %s", ErrFileNotFound, path))
	}

	plugin, err := p.Plugins.ForFile(path, pluginName)
	if err != nil {
		if errors.Is(err, parser.ErrPluginNotFound) {
			err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		return p.fail(ctx, documentID, err)
	}

	records, err := parser.Process(ctx, plugin, path)
	if err != nil {
		return p.fail(ctx, documentID, err)
	}

	chunks := p.buildChunks(documentID, records)
	rawText := buildRawText(records)

	slog.InfoContext(ctx, "document parsed",
		"document_id", documentID,
		"plugin", plugin.Name(),
		"records", len(records),
		"chunks", len(chunks),
	)

	if len(chunks) > 0 {
		contents := make([]string, len(chunks))
		for i, chunk := range chunks {
			contents[i] = chunk.Content
		}

		vectors, err := p.Embedder.EmbedBatch(ctx, contents)
		if err != nil {
			return p.fail(ctx, documentID, &EmbeddingError{Err: err})
		}
		if dim := p.Embedder.Dimension(); dim > 0 {
			for i, vector := range vectors {
				if len(vector) != dim {
					return p.fail(ctx, documentID, &EmbeddingError{
						Err: fmt.Errorf("vector %d has dimension %d, want %d", i, len(vector), dim),
					})
				}
			}
		}
		for i := range chunks {
			chunks[i].Vector = vectors[i]
		}

		if err := p.Index.UpsertBatch(ctx, chunks); err != nil {
			return p.fail(ctx, documentID, &IndexWriteError{Err: err})
		}
	}

	if err := p.Documents.SetIngestResult(ctx, documentID, rawText, len(chunks)); err != nil {
		return fmt.Errorf("store ingest result: %w", err)
	}
	if err := p.Documents.SetStatus(ctx, documentID, StatusCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	slog.InfoContext(ctx, "ingestion completed", "document_id", documentID, "chunks", len(chunks))
	return nil
}

// fail records the error on the document row and returns it. The cause
// may be the request context's own deadline, so the status write runs
// detached from it; otherwise the row would stay in processing forever.
// A failure to persist the status is logged, not returned, so the
// original error survives.
func (p *Pipeline) fail(ctx context.Context, documentID string, cause error) error {
	slog.ErrorContext(ctx, "ingestion failed", "document_id", documentID, "error", cause)
	if err := p.Documents.SetFailure(context.WithoutCancel(ctx), documentID, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to record ingestion failure", "document_id", documentID, "error", err)
	}
	return cause
}

// buildChunks chunks each parsed record and assigns one global sequence
// across the whole document.
func (p *Pipeline) buildChunks(documentID string, records []parser.Record) []TextChunk {
	var chunks []TextChunk
	seq := 0

	for _, record := range records {
		content := sanitize(record.TextContent)
		if strings.TrimSpace(content) == "" {
			continue
		}

		var recordChunks []text.Chunk
		if page, ok := metaInt(record.Metadata, "page_number"); ok {
			recordChunks = p.Chunker.ChunkPages([]text.Page{{Text: content, Number: &page}})
		} else {
			recordChunks = p.Chunker.ChunkText(content)
		}

		contentType, _ := record.Metadata["content_type"].(string)

		for _, chunk := range recordChunks {
			out := TextChunk{
				DocumentID:     documentID,
				Content:        chunk.Content,
				SequenceNumber: seq,
				PageNumber:     chunk.PageNumber,
				ContentType:    contentType,
			}
			if chapter, ok := metaInt(chunk.Metadata, "chapter_number"); ok {
				out.ChapterNumber = &chapter
			}
			if title, ok := chunk.Metadata["chapter_title"].(string); ok {
				out.ChapterTitle = title
			}
			chunks = append(chunks, out)
			seq++
		}
	}
	return chunks
}

// buildRawText joins all extracted text for persistence, NUL-stripped
// and capped.
func buildRawText(records []parser.Record) string {
	parts := make([]string, 0, len(records))
	for _, record := range records {
		if t := sanitize(record.TextContent); t != "" {
			parts = append(parts, t)
		}
	}

	return text.Truncate(strings.Join(parts, "\n\n"), maxRawTextLen)
}

// sanitize drops NUL bytes, which Postgres text columns reject.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

func metaInt(meta map[string]interface{}, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
