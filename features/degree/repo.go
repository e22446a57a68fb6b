package degree

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

func (r *PostgresRepo) Save(ctx context.Context, d *Degree) error {
	query := `INSERT INTO degrees (name, prompt_context) VALUES ($1, $2) RETURNING id`
	return r.db.QueryRowContext(ctx, query, d.Name, d.PromptContext).Scan(&d.ID)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Degree, error) {
	d := &Degree{}
	query := `SELECT id, name, COALESCE(prompt_context, ''), created_at::text FROM degrees WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.PromptContext, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Degree, error) {
	query := `SELECT id, name, COALESCE(prompt_context, ''), created_at::text FROM degrees WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var degrees []Degree
	for rows.Next() {
		var d Degree
		if err := rows.Scan(&d.ID, &d.Name, &d.PromptContext, &d.CreatedAt); err != nil {
			return nil, err
		}
		degrees = append(degrees, d)
	}
	return degrees, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, d *Degree) error {
	query := `UPDATE degrees SET name = $1, prompt_context = $2, updated_at = NOW() WHERE id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, d.Name, d.PromptContext, d.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE degrees SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
