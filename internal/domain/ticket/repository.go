package ticket

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows ticket listings. Zero-value fields are ignored.
type Filter struct {
	OrganizationID uuid.UUID
	AgentID        *uuid.UUID
	Statuses       []Status
	Priorities     []Priority
	Limit          int
}

// Repository defines the interface for ticket data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	List(ctx context.Context, filter Filter) ([]Ticket, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Create(ctx context.Context, t *Ticket) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// AssignIfUnassigned sets the assignee only when the ticket has none,
	// so a retried assignment cannot double-assign. Returns ErrAlreadyAssigned
	// when the conditional update matches no row but the ticket exists.
	AssignIfUnassigned(ctx context.Context, ticketID, agentID uuid.UUID) error
}
