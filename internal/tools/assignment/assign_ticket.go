package assignment

import (
	"context"
	"fmt"

	"minerva/internal/domain/agent"
	"minerva/internal/domain/ticket"
	"minerva/internal/tools"
	"minerva/internal/tracing"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
	"minerva/pkg/retry"
)

// skillMatchThreshold is the minimum skill coverage counted as a good
// domain match when scoring an assignment.
const skillMatchThreshold = 0.5

// AssignTicketTool assigns an unassigned ticket to an agent. The write is a
// conditional update, so a retried call cannot double-assign.
type AssignTicketTool struct {
	deps tools.Deps
	log  *logger.Logger
}

var _ tools.Tool = (*AssignTicketTool)(nil)

// NewAssignTicketTool creates the assign_ticket tool
func NewAssignTicketTool(deps tools.Deps) *AssignTicketTool {
	return &AssignTicketTool{
		deps: deps,
		log:  logger.Get().With("tool", "assign_ticket"),
	}
}

func (t *AssignTicketTool) Name() string {
	return "assign_ticket"
}

func (t *AssignTicketTool) Description() string {
	return "Assigns an unassigned ticket to an active agent with spare capacity"
}

func (t *AssignTicketTool) ActionType() tracing.ActionType {
	return tracing.ActionMutation
}

func (t *AssignTicketTool) Execute(ctx context.Context, input tools.Input) (*tools.Output, error) {
	orgID, err := input.OrganizationID()
	if err != nil {
		return nil, err
	}
	ticketID, err := input.UUID("ticket_id")
	if err != nil {
		return nil, err
	}
	agentID, err := input.UUID("agent_id")
	if err != nil {
		return nil, err
	}

	tk, tkRetries, err := retry.DoWithResult(ctx, t.deps.Retry, func() (*ticket.Ticket, error) {
		return t.deps.TicketRepo.GetByID(ctx, ticketID)
	})
	if err != nil {
		return nil, err
	}
	if tk.OrganizationID != orgID {
		return nil, errors.Wrapf(errors.ErrNotFound, "ticket %s", ticketID)
	}
	if tk.Status.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrTicketClosed, "ticket %s", ticketID)
	}
	if tk.IsAssigned() {
		return nil, errors.Wrapf(errors.ErrAlreadyAssigned, "ticket %s", ticketID)
	}

	ag, agRetries, err := retry.DoWithResult(ctx, t.deps.Retry, func() (*agent.Agent, error) {
		return t.deps.AgentRepo.GetByID(ctx, agentID)
	})
	if err != nil {
		return nil, err
	}
	if ag.OrganizationID != orgID {
		return nil, errors.Wrapf(errors.ErrNotFound, "agent %s", agentID)
	}
	if !ag.IsActive {
		return nil, errors.Wrapf(errors.ErrAgentInactive, "agent %s", agentID)
	}
	if !ag.HasCapacity() {
		return nil, errors.Wrapf(errors.ErrAgentAtCapacity,
			"agent %s has %d of %d open tickets", agentID, ag.OpenTickets, ag.MaxOpenTickets)
	}

	assignRetries, err := t.deps.Retry.Do(ctx, func() error {
		return t.deps.TicketRepo.AssignIfUnassigned(ctx, ticketID, agentID)
	})
	if err != nil {
		return nil, err
	}

	// The assignment is already committed at this point; a failed counter
	// bump must not unwind it.
	if incErr := t.deps.AgentRepo.IncrementOpenTickets(ctx, agentID); incErr != nil {
		t.log.Errorf("Failed to bump open ticket count for agent %s: %v", agentID, incErr)
	}

	skillMatch := ag.SkillMatch(tk.Tags)

	return &tools.Output{
		Data: map[string]interface{}{
			"ticket_id":    ticketID.String(),
			"agent_id":     agentID.String(),
			"agent_name":   ag.Name,
			"skill_match":  skillMatch,
			"had_capacity": true,
		},
		Message:        fmt.Sprintf("ticket assigned to %s", ag.Name),
		RetryCount:     tkRetries + agRetries + assignRetries,
		TotalProcessed: 1,
	}, nil
}

// Confidence scores the assignment with the mutation factor set, each
// factor carrying 0.25: valid input, agent availability, operation success
// and skill match quality.
func (t *AssignTicketTool) Confidence(input tools.Input, output *tools.Output) float64 {
	_, ticketErr := input.UUID("ticket_id")
	_, agentErr := input.UUID("agent_id")

	var hadCapacity, goodMatch, succeeded bool
	if output != nil && output.Data != nil {
		succeeded = true
		hadCapacity, _ = output.Data["had_capacity"].(bool)
		if match, ok := output.Data["skill_match"].(float64); ok {
			goodMatch = match >= skillMatchThreshold
		}
	}

	return tools.FactorSum(
		tools.Factor{Weight: 0.25, Holds: ticketErr == nil && agentErr == nil},
		tools.Factor{Weight: 0.25, Holds: hadCapacity},
		tools.Factor{Weight: 0.25, Holds: succeeded},
		tools.Factor{Weight: 0.25, Holds: goodMatch},
	)
}
