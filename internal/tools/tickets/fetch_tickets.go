package tickets

import (
	"context"
	"fmt"

	"minerva/internal/domain/ticket"
	"minerva/internal/tools"
	"minerva/internal/tracing"
	"minerva/pkg/errors"
	"minerva/pkg/retry"
)

const defaultFetchLimit = 50

// FetchTicketsTool lists tickets assigned to an agent, optionally narrowed
// by status and priority.
type FetchTicketsTool struct {
	deps tools.Deps
}

var _ tools.Tool = (*FetchTicketsTool)(nil)

// NewFetchTicketsTool creates the fetch_tickets tool
func NewFetchTicketsTool(deps tools.Deps) *FetchTicketsTool {
	return &FetchTicketsTool{deps: deps}
}

func (t *FetchTicketsTool) Name() string {
	return "fetch_tickets"
}

func (t *FetchTicketsTool) Description() string {
	return "Fetches helpdesk tickets for an agent, filtered by status and priority"
}

func (t *FetchTicketsTool) ActionType() tracing.ActionType {
	return tracing.ActionQuery
}

func (t *FetchTicketsTool) Execute(ctx context.Context, input tools.Input) (*tools.Output, error) {
	orgID, err := input.OrganizationID()
	if err != nil {
		return nil, err
	}
	agentID, err := input.UUID("agent_id")
	if err != nil {
		return nil, err
	}

	statuses, err := parseStatuses(input)
	if err != nil {
		return nil, err
	}
	priorities, err := parsePriorities(input)
	if err != nil {
		return nil, err
	}
	limit, err := input.Int("limit", defaultFetchLimit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		return nil, errors.NewValidationError("limit", "must be between 1 and 500", limit)
	}

	filter := ticket.Filter{
		OrganizationID: orgID,
		AgentID:        &agentID,
		Statuses:       statuses,
		Priorities:     priorities,
		Limit:          limit,
	}

	filtersApplied := []string{"organization_id", "agent_id"}
	if len(statuses) > 0 {
		filtersApplied = append(filtersApplied, "status")
	}
	if len(priorities) > 0 {
		filtersApplied = append(filtersApplied, "priority")
	}

	list, retries, err := retry.DoWithResult(ctx, t.deps.Retry, func() ([]ticket.Ticket, error) {
		return t.deps.TicketRepo.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}

	total, countRetries, err := retry.DoWithResult(ctx, t.deps.Retry, func() (int, error) {
		return t.deps.TicketRepo.Count(ctx, filter)
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, 0, len(list))
	for i := range list {
		items = append(items, ticketSummary(&list[i]))
	}

	return &tools.Output{
		Data: map[string]interface{}{
			"tickets":         items,
			"total":           total,
			"filters_applied": filtersApplied,
		},
		Message:         fmt.Sprintf("found %d tickets", total),
		RetryCount:      retries + countRetries,
		TotalProcessed:  len(list),
		QueryComplexity: len(filtersApplied),
	}, nil
}

// Confidence scores the result with the query factor set: data quality
// carries 0.6, response envelope quality carries 0.4.
func (t *FetchTicketsTool) Confidence(input tools.Input, output *tools.Output) float64 {
	return tools.QueryConfidence(output, "tickets", "total", "filters_applied")
}

func ticketSummary(tk *ticket.Ticket) map[string]interface{} {
	summary := map[string]interface{}{
		"id":         tk.ID.String(),
		"subject":    tk.Subject,
		"status":     string(tk.Status),
		"priority":   string(tk.Priority),
		"tags":       tk.Tags,
		"created_at": tk.CreatedAt,
	}
	if tk.AssignedAgentID != nil {
		summary["assigned_agent_id"] = tk.AssignedAgentID.String()
	}
	return summary
}

func parseStatuses(input tools.Input) ([]ticket.Status, error) {
	raw, err := input.StringSlice("status")
	if err != nil {
		return nil, err
	}
	statuses := make([]ticket.Status, 0, len(raw))
	for _, s := range raw {
		status := ticket.Status(s)
		if !status.IsValid() {
			return nil, errors.NewValidationError("status", "contains an unknown status", s)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parsePriorities(input tools.Input) ([]ticket.Priority, error) {
	raw, err := input.StringSlice("priority")
	if err != nil {
		return nil, err
	}
	priorities := make([]ticket.Priority, 0, len(raw))
	for _, p := range raw {
		priority := ticket.Priority(p)
		if !priority.IsValid() {
			return nil, errors.NewValidationError("priority", "contains an unknown priority", p)
		}
		priorities = append(priorities, priority)
	}
	return priorities, nil
}
