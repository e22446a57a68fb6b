package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/features/document"
	weaviate_adapter "lectern/internal/adapter/weaviate"
	"lectern/internal/ingest"
	"lectern/internal/testutils"
)

func TestIntegration_DocumentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()
	repo := document.NewPostgresRepo(s.DB)

	doc := &document.Document{
		Filename:     "contracts.pdf",
		StoredPath:   "/uploads/abc_contracts.pdf",
		ContentHash:  "deadbeef",
		Status:       ingest.StatusPending,
		DocumentType: "legal",
		PluginName:   "pdf_parser",
	}
	require.NoError(t, repo.Save(ctx, doc))
	require.NotEmpty(t, doc.ID)

	require.NoError(t, repo.SetStatus(ctx, doc.ID, ingest.StatusProcessing))
	require.NoError(t, repo.SetIngestResult(ctx, doc.ID, "the full extracted text", 12))

	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusCompleted, got.Status)
	assert.Equal(t, 12, got.ChunkCount)

	dctx, err := repo.DocumentContext(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "the full extracted text", dctx.RawText)
	assert.Equal(t, "legal", dctx.DocumentType)

	require.NoError(t, repo.SetFailure(ctx, doc.ID, "embedding quota exceeded"))
	got, err = repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusFailed, got.Status)
	assert.Equal(t, "embedding quota exceeded", got.ErrorMessage)

	require.NoError(t, repo.SoftDelete(ctx, doc.ID))
	_, err = repo.Get(ctx, doc.ID)
	assert.Error(t, err)
}

func TestIntegration_VectorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()
	store := weaviate_adapter.NewStore(s.Weaviate)
	require.NoError(t, store.EnsureSchema(ctx))

	page := 3
	chunks := []ingest.TextChunk{
		{DocumentID: "doc-1", Content: "offer and acceptance", SequenceNumber: 0, PageNumber: &page, Vector: []float32{0.1, 0.2, 0.3}},
		{DocumentID: "doc-1", Content: "consideration must move", SequenceNumber: 1, Vector: []float32{0.9, 0.8, 0.7}},
	}
	require.NoError(t, store.UpsertBatch(ctx, chunks))

	// Weaviate indexes asynchronously.
	time.Sleep(1 * time.Second)

	count, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.SearchByVector(ctx, []float32{0.1, 0.2, 0.3}, "doc-1", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "offer and acceptance", results[0].Content)
	assert.Greater(t, results[0].Similarity, 0.9)

	contents, err := store.ChunkContents(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"offer and acceptance", "consideration must move"}, contents)

	require.NoError(t, store.DeleteByDocument(ctx, "doc-1"))
	time.Sleep(1 * time.Second)

	count, err = store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
