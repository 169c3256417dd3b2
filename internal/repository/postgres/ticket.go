package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"minerva/internal/domain/ticket"
	"minerva/pkg/errors"
)

// Compile-time check
var _ ticket.Repository = (*TicketRepository)(nil)

// TicketRepository implements ticket.Repository
type TicketRepository struct {
	db DBTX
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db DBTX) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `
	id, organization_id, subject, description, status, priority,
	assigned_agent_id, requester_email, tags, created_at, updated_at, resolved_at
`

func scanTicket(row interface {
	Scan(dest ...interface{}) error
}) (*ticket.Ticket, error) {
	t := &ticket.Ticket{}
	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.Subject, &t.Description, &t.Status, &t.Priority,
		&t.AssignedAgentID, &t.RequesterEmail, pq.Array(&t.Tags),
		&t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create creates a new ticket
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	query := `
		INSERT INTO tickets (
			organization_id, subject, description, status, priority,
			assigned_agent_id, requester_email, tags
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		t.OrganizationID, t.Subject, t.Description, t.Status, t.Priority,
		t.AssignedAgentID, t.RequesterEmail, pq.Array(t.Tags),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	t, err := scanTicket(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get ticket by id")
	}
	return t, nil
}

// List retrieves tickets matching the filter
func (r *TicketRepository) List(ctx context.Context, filter ticket.Filter) ([]ticket.Ticket, error) {
	query, args := buildTicketQuery(`SELECT `+ticketColumns+` FROM tickets`, filter)
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list tickets")
	}
	defer rows.Close()

	var tickets []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan ticket")
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// Count counts tickets matching the filter
func (r *TicketRepository) Count(ctx context.Context, filter ticket.Filter) (int, error) {
	query, args := buildTicketQuery(`SELECT COUNT(*) FROM tickets`, filter)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count tickets")
	}
	return count, nil
}

// UpdateStatus transitions a ticket's status
func (r *TicketRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ticket.Status) error {
	query := `
		UPDATE tickets
		SET status = $1,
		    resolved_at = CASE WHEN $1 IN ('resolved', 'closed') THEN NOW() ELSE resolved_at END,
		    updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return errors.Wrap(err, "update ticket status")
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

// AssignIfUnassigned sets the assignee only when the ticket has none. The
// conditional WHERE keeps retried assignments idempotent.
func (r *TicketRepository) AssignIfUnassigned(ctx context.Context, ticketID, agentID uuid.UUID) error {
	query := `
		UPDATE tickets
		SET assigned_agent_id = $1, status = 'open', updated_at = NOW()
		WHERE id = $2 AND assigned_agent_id IS NULL AND status != 'closed'
	`

	result, err := r.db.ExecContext(ctx, query, agentID, ticketID)
	if err != nil {
		return errors.Wrap(err, "assign ticket")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 1 {
		return nil
	}

	// Distinguish why the conditional update matched nothing
	existing, err := r.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if existing.Status.IsTerminal() {
		return errors.ErrTicketClosed
	}
	if existing.IsAssigned() {
		return errors.ErrAlreadyAssigned
	}
	return errors.Wrap(errors.ErrInternal, "assignment matched no row")
}

// buildTicketQuery appends WHERE clauses for the filter's set fields
func buildTicketQuery(base string, filter ticket.Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.OrganizationID != uuid.Nil {
		args = append(args, filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = string(p)
		}
		args = append(args, pq.Array(priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}

	if len(clauses) > 0 {
		base += " WHERE " + strings.Join(clauses, " AND ")
	}
	return base, args
}
