package prompt

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, p *Prompt) error {
	query := `INSERT INTO prompts (name, template, description) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowContext(ctx, query, p.Name, p.Template, p.Description).Scan(&p.ID)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Prompt, error) {
	p := &Prompt{}
	query := `SELECT id, name, template, COALESCE(description, ''), created_at::text FROM prompts WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Template, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) GetByName(ctx context.Context, name string) (*Prompt, error) {
	p := &Prompt{}
	query := `SELECT id, name, template, COALESCE(description, ''), created_at::text FROM prompts WHERE name = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, name).Scan(&p.ID, &p.Name, &p.Template, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Prompt, error) {
	query := `SELECT id, name, template, COALESCE(description, ''), created_at::text FROM prompts WHERE deleted_at IS NULL ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.Name, &p.Template, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, p *Prompt) error {
	query := `UPDATE prompts SET name = $1, template = $2, description = $3, updated_at = NOW() WHERE id = $4 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Template, p.Description, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE prompts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Template implements template resolution for the answer and summary
// flows. A missing prompt is not an error, the caller falls back to its
// built-in text.
func (r *PostgresRepo) Template(ctx context.Context, name string) (string, error) {
	p, err := r.GetByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Template, nil
}
