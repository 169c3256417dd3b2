package article

import (
	"time"

	"github.com/google/uuid"
)

// Status is the publication state of a knowledge-base article
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Article is a knowledge-base article
type Article struct {
	ID             uuid.UUID  `db:"id"`
	OrganizationID uuid.UUID  `db:"organization_id"`
	Title          string     `db:"title"`
	Body           string     `db:"body"`
	Category       string     `db:"category"`
	Status         Status     `db:"status"`
	AuthorAgentID  *uuid.UUID `db:"author_agent_id"`
	SourceTicketID *uuid.UUID `db:"source_ticket_id"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}
