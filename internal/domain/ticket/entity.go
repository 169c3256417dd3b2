package ticket

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a ticket
type Status string

const (
	StatusNew      Status = "new"
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusOpen, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the ticket can no longer be modified
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// Priority is the urgency of a ticket
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is a single helpdesk request
type Ticket struct {
	ID              uuid.UUID  `db:"id"`
	OrganizationID  uuid.UUID  `db:"organization_id"`
	Subject         string     `db:"subject"`
	Description     string     `db:"description"`
	Status          Status     `db:"status"`
	Priority        Priority   `db:"priority"`
	AssignedAgentID *uuid.UUID `db:"assigned_agent_id"`
	RequesterEmail  string     `db:"requester_email"`
	Tags            []string   `db:"-"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	ResolvedAt      *time.Time `db:"resolved_at"`
}

// IsAssigned reports whether the ticket has an assignee
func (t *Ticket) IsAssigned() bool {
	return t.AssignedAgentID != nil
}
