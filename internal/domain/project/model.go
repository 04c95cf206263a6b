package project

import (
	"time"

	"github.com/rpggio/tally/internal/domain/user"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Project is a votable entity registered on the ledger.
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ManagerID   string        `json:"manager_id"`
	Manager     *user.Summary `json:"manager,omitempty"`
	Status      Status        `json:"status"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	LedgerRef   string        `json:"ledger_ref"`
	TotalVotes  int64         `json:"total_votes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AcceptsVotes reports whether the project is in its voting window.
func (p *Project) AcceptsVotes() bool {
	return p.Status == StatusActive
}
