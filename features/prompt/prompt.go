package prompt

import "context"

type Prompt struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Template    string `json:"template"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, p *Prompt) error
	Get(ctx context.Context, id string) (*Prompt, error)
	GetByName(ctx context.Context, name string) (*Prompt, error)
	List(ctx context.Context) ([]Prompt, error)
	Update(ctx context.Context, p *Prompt) error
	SoftDelete(ctx context.Context, id string) error
}
