package course

import "context"

type Course struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Code          string  `json:"code,omitempty"`
	PromptContext string  `json:"prompt_context,omitempty"`
	DegreeID      *string `json:"degree_id,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, c *Course) error
	Get(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context) ([]Course, error)
	Update(ctx context.Context, c *Course) error
	SoftDelete(ctx context.Context, id string) error
}
