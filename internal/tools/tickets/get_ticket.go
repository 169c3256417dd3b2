package tickets

import (
	"context"

	"minerva/internal/domain/ticket"
	"minerva/internal/tools"
	"minerva/internal/tracing"
	"minerva/pkg/errors"
	"minerva/pkg/retry"
)

// GetTicketTool fetches a single ticket by id
type GetTicketTool struct {
	deps tools.Deps
}

var _ tools.Tool = (*GetTicketTool)(nil)

// NewGetTicketTool creates the get_ticket tool
func NewGetTicketTool(deps tools.Deps) *GetTicketTool {
	return &GetTicketTool{deps: deps}
}

func (t *GetTicketTool) Name() string {
	return "get_ticket"
}

func (t *GetTicketTool) Description() string {
	return "Fetches a single helpdesk ticket with its full details"
}

func (t *GetTicketTool) ActionType() tracing.ActionType {
	return tracing.ActionQuery
}

func (t *GetTicketTool) Execute(ctx context.Context, input tools.Input) (*tools.Output, error) {
	orgID, err := input.OrganizationID()
	if err != nil {
		return nil, err
	}
	ticketID, err := input.UUID("ticket_id")
	if err != nil {
		return nil, err
	}

	tk, retries, err := retry.DoWithResult(ctx, t.deps.Retry, func() (*ticket.Ticket, error) {
		return t.deps.TicketRepo.GetByID(ctx, ticketID)
	})
	if err != nil {
		return nil, err
	}

	// A ticket belonging to another tenant must be indistinguishable from a
	// missing one.
	if tk.OrganizationID != orgID {
		return nil, errors.Wrapf(errors.ErrNotFound, "ticket %s", ticketID)
	}

	detail := ticketSummary(tk)
	detail["description"] = tk.Description
	detail["requester_email"] = tk.RequesterEmail
	detail["updated_at"] = tk.UpdatedAt
	if tk.ResolvedAt != nil {
		detail["resolved_at"] = *tk.ResolvedAt
	}

	return &tools.Output{
		Data: map[string]interface{}{
			"ticket": detail,
		},
		Message:         "ticket found",
		RetryCount:      retries,
		TotalProcessed:  1,
		QueryComplexity: 1,
	}, nil
}

func (t *GetTicketTool) Confidence(input tools.Input, output *tools.Output) float64 {
	return tools.QueryConfidence(output, "ticket")
}
