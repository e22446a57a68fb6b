package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lectern/internal/rag"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (filename, stored_path, content_hash, status, document_type, plugin_name, course_id, week)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		doc.Filename, doc.StoredPath, doc.ContentHash, doc.Status,
		doc.DocumentType, doc.PluginName, doc.CourseID, doc.Week,
	).Scan(&doc.ID)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	query := `SELECT id, filename, stored_path, status, COALESCE(error_message, ''), chunk_count,
		COALESCE(document_type, ''), COALESCE(plugin_name, ''), course_id, week, created_at::text, updated_at::text
		FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Filename, &doc.StoredPath, &doc.Status, &doc.ErrorMessage, &doc.ChunkCount,
		&doc.DocumentType, &doc.PluginName, &doc.CourseID, &doc.Week, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT id, filename, status, COALESCE(error_message, ''), chunk_count,
		COALESCE(document_type, ''), COALESCE(plugin_name, ''), course_id, week, created_at::text
		FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.Status, &d.ErrorMessage, &d.ChunkCount,
			&d.DocumentType, &d.PluginName, &d.CourseID, &d.Week, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`).Scan(&count)
	return count, err
}

func (r *PostgresRepo) SetStatus(ctx context.Context, documentID, status string) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, documentID)
	return err
}

func (r *PostgresRepo) SetFailure(ctx context.Context, documentID, errorMessage string) error {
	query := `UPDATE documents SET status = 'failed', error_message = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, errorMessage, documentID)
	return err
}

func (r *PostgresRepo) SetIngestResult(ctx context.Context, documentID, rawText string, chunkCount int) error {
	query := `UPDATE documents SET raw_text = $1, chunk_count = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, rawText, chunkCount, documentID)
	return err
}

// DocumentContext pulls the document together with any linked course
// and degree prompt context in one query.
func (r *PostgresRepo) DocumentContext(ctx context.Context, documentID string) (*rag.DocumentContext, error) {
	dc := &rag.DocumentContext{}
	query := `SELECT d.id, d.filename, COALESCE(d.raw_text, ''), COALESCE(d.document_type, ''),
		d.stored_path, COALESCE(d.plugin_name, ''),
		COALESCE(c.prompt_context, ''), COALESCE(g.prompt_context, '')
		FROM documents d
		LEFT JOIN courses c ON d.course_id = c.id AND c.deleted_at IS NULL
		LEFT JOIN degrees g ON c.degree_id = g.id AND g.deleted_at IS NULL
		WHERE d.id = $1 AND d.deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(
		&dc.ID, &dc.Filename, &dc.RawText, &dc.DocumentType,
		&dc.SourcePath, &dc.PluginName,
		&dc.CourseContext, &dc.DegreeContext,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", rag.ErrNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	return dc, nil
}
