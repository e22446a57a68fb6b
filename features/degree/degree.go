package degree

import "context"

type Degree struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PromptContext string `json:"prompt_context,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, d *Degree) error
	Get(ctx context.Context, id string) (*Degree, error)
	List(ctx context.Context) ([]Degree, error)
	Update(ctx context.Context, d *Degree) error
	SoftDelete(ctx context.Context, id string) error
}
