package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/repository"
)

const projectColumns = `
	p.id, p.title, p.description, p.manager_id, p.status, p.start_date, p.end_date,
	p.ledger_ref, p.total_votes, p.created_at, p.updated_at,
	u.id, u.name, u.email
`

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, title, description, manager_id, status, start_date, end_date,
			ledger_ref, total_votes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		proj.ID,
		proj.Title,
		proj.Description,
		proj.ManagerID,
		proj.Status,
		proj.StartDate,
		proj.EndDate,
		proj.LedgerRef,
		proj.TotalVotes,
		proj.CreatedAt,
		proj.UpdatedAt,
	)
	if err != nil {
		switch {
		case uniqueOn(err, "projects.ledger_ref"):
			return fmt.Errorf("%w: %w", repository.ErrIntegrity, err)
		case isUniqueViolation(err):
			return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: %w", repository.ErrForeignKeyViolation, err)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID with its manager summary
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	query := `SELECT ` + projectColumns + `
		FROM projects p
		JOIN users u ON u.id = p.manager_id
		WHERE p.id = ?
	`

	proj, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return proj, nil
}

// List returns all projects, newest first
func (r *ProjectRepository) List(ctx context.Context) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + `
		FROM projects p
		JOIN users u ON u.id = p.manager_id
		ORDER BY p.created_at DESC, p.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *proj)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, nil
}

// Update writes the editable fields. The write only applies while the stored
// status still equals expectedStatus; otherwise repository.ErrConflict.
// total_votes is never written here.
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project, expectedStatus project.Status) error {
	query := `
		UPDATE projects
		SET title = ?, description = ?, status = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		proj.Title,
		proj.Description,
		proj.Status,
		proj.StartDate,
		proj.EndDate,
		proj.UpdatedAt,
		proj.ID,
		expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, proj.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var proj project.Project
	var manager user.Summary
	err := row.Scan(
		&proj.ID,
		&proj.Title,
		&proj.Description,
		&proj.ManagerID,
		&proj.Status,
		&proj.StartDate,
		&proj.EndDate,
		&proj.LedgerRef,
		&proj.TotalVotes,
		&proj.CreatedAt,
		&proj.UpdatedAt,
		&manager.ID,
		&manager.Name,
		&manager.Email,
	)
	if err != nil {
		return nil, err
	}
	proj.Manager = &manager
	return &proj, nil
}
