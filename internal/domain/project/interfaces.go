package project

import "context"

// Repository provides persistence for projects.
type Repository interface {
	Create(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Update(ctx context.Context, proj *Project, expectedStatus Status) error
}

// Ledger registers projects on the external ledger.
type Ledger interface {
	RecordProject(ctx context.Context, title string) (string, error)
}
