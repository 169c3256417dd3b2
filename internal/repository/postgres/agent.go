package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"minerva/internal/domain/agent"
	"minerva/pkg/errors"
)

// Compile-time check
var _ agent.Repository = (*AgentRepository)(nil)

// AgentRepository implements agent.Repository
type AgentRepository struct {
	db DBTX
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db DBTX) *AgentRepository {
	return &AgentRepository{db: db}
}

// Create creates a new agent
func (r *AgentRepository) Create(ctx context.Context, a *agent.Agent) error {
	query := `
		INSERT INTO agents (
			organization_id, name, email, skills,
			max_open_tickets, open_tickets, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		a.OrganizationID, a.Name, a.Email, pq.Array(a.Skills),
		a.MaxOpenTickets, a.OpenTickets, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves agent by ID
func (r *AgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*agent.Agent, error) {
	query := `
		SELECT id, organization_id, name, email, skills,
		       max_open_tickets, open_tickets, is_active, created_at, updated_at
		FROM agents
		WHERE id = $1
	`

	a := &agent.Agent{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.OrganizationID, &a.Name, &a.Email, pq.Array(&a.Skills),
		&a.MaxOpenTickets, &a.OpenTickets, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get agent by id")
	}
	return a, nil
}

// ListActive retrieves all active agents for an organization
func (r *AgentRepository) ListActive(ctx context.Context, organizationID uuid.UUID) ([]agent.Agent, error) {
	query := `
		SELECT id, organization_id, name, email, skills,
		       max_open_tickets, open_tickets, is_active, created_at, updated_at
		FROM agents
		WHERE organization_id = $1 AND is_active = TRUE
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, errors.Wrap(err, "list active agents")
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a := agent.Agent{}
		err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.Name, &a.Email, pq.Array(&a.Skills),
			&a.MaxOpenTickets, &a.OpenTickets, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan agent")
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// IncrementOpenTickets bumps the open ticket counter
func (r *AgentRepository) IncrementOpenTickets(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE agents
		SET open_tickets = open_tickets + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "increment open tickets")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}
