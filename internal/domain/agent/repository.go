package agent

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for agent data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]Agent, error)
	Create(ctx context.Context, a *Agent) error

	// IncrementOpenTickets bumps the agent's open ticket counter after a
	// successful assignment.
	IncrementOpenTickets(ctx context.Context, id uuid.UUID) error
}
