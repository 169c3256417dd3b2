package agent

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a human support agent who can be assigned tickets
type Agent struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Skills         []string  `db:"-"`
	MaxOpenTickets int       `db:"max_open_tickets"`
	OpenTickets    int       `db:"open_tickets"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// HasCapacity reports whether the agent can take another ticket
func (a *Agent) HasCapacity() bool {
	return a.MaxOpenTickets <= 0 || a.OpenTickets < a.MaxOpenTickets
}

// SkillMatch returns the fraction of wanted tags covered by the agent's
// skills, in [0,1]. An empty want list counts as a full match.
func (a *Agent) SkillMatch(want []string) float64 {
	if len(want) == 0 {
		return 1.0
	}

	skills := make(map[string]struct{}, len(a.Skills))
	for _, s := range a.Skills {
		skills[s] = struct{}{}
	}

	matched := 0
	for _, tag := range want {
		if _, ok := skills[tag]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}
