package course

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, c *Course) error {
	query := `INSERT INTO courses (name, code, prompt_context, degree_id) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowContext(ctx, query, c.Name, c.Code, c.PromptContext, c.DegreeID).Scan(&c.ID)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Course, error) {
	c := &Course{}
	query := `SELECT id, name, COALESCE(code, ''), COALESCE(prompt_context, ''), degree_id, created_at::text
		FROM courses WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Code, &c.PromptContext, &c.DegreeID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Course, error) {
	query := `SELECT id, name, COALESCE(code, ''), COALESCE(prompt_context, ''), degree_id, created_at::text
		FROM courses WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.PromptContext, &c.DegreeID, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, c *Course) error {
	query := `UPDATE courses SET name = $1, code = $2, prompt_context = $3, degree_id = $4, updated_at = NOW()
		WHERE id = $5 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Code, c.PromptContext, c.DegreeID, c.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
