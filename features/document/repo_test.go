package document_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/features/document"
	"lectern/internal/rag"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	doc := &document.Document{
		Filename:    "notes.pdf",
		StoredPath:  "/uploads/abc_notes.pdf",
		ContentHash: "hash",
		Status:      "pending",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs(doc.Filename, doc.StoredPath, doc.ContentHash, doc.Status, "", "", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-1"))

	err = repo.Save(context.Background(), doc)
	assert.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "filename", "stored_path", "status", "error_message", "chunk_count",
			"document_type", "plugin_name", "course_id", "week", "created_at", "updated_at",
		}).AddRow("doc-1", "notes.pdf", "/uploads/abc_notes.pdf", "completed", "", 12, "", "pdf_parser", nil, nil, "2026-01-01", "2026-01-02")

		mock.ExpectQuery("SELECT id, filename, stored_path").
			WithArgs("doc-1").
			WillReturnRows(rows)

		doc, err := repo.Get(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "completed", doc.Status)
		assert.Equal(t, 12, doc.ChunkCount)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, filename, stored_path").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresRepo_SetFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec("UPDATE documents SET status = 'failed'").
		WithArgs("parse error: bad file", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetFailure(context.Background(), "doc-1", "parse error: bad file"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SetIngestResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec("UPDATE documents SET raw_text").
		WithArgs("extracted text", 7, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetIngestResult(context.Background(), "doc-1", "extracted text", 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SoftDelete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec("UPDATE documents SET deleted_at").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "ghost"), sql.ErrNoRows)
}

func TestPostgresRepo_DocumentContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	t.Run("WithCourseAndDegree", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"id", "filename", "raw_text", "document_type", "stored_path", "plugin_name", "course_prompt", "degree_prompt",
		}).AddRow("doc-1", "notes.pdf", "the raw text", "legal", "/uploads/x.pdf", "pdf_parser", "course ctx", "degree ctx")

		mock.ExpectQuery("LEFT JOIN courses").
			WithArgs("doc-1").
			WillReturnRows(rows)

		dc, err := repo.DocumentContext(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "the raw text", dc.RawText)
		assert.Equal(t, "course ctx", dc.CourseContext)
		assert.Equal(t, "degree ctx", dc.DegreeContext)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("LEFT JOIN courses").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.DocumentContext(context.Background(), "ghost")
		assert.ErrorIs(t, err, rag.ErrNotFound)
	})
}
