package articles

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"minerva/internal/adapters/ai"
	"minerva/internal/domain/article"
	"minerva/internal/domain/ticket"
	"minerva/internal/tools"
	"minerva/internal/tracing"
	"minerva/pkg/errors"
	"minerva/pkg/retry"
)

const draftSystemPrompt = `You are a technical writer for a helpdesk knowledge base.
Given a resolved support ticket, write a reusable article other agents can follow.
Respond with a JSON object: {"title": "...", "body": "..."}. No markdown fences.`

// minBodyLength is the shortest generated body counted as substantial when
// scoring the draft.
const minBodyLength = 200

// CreateArticleTool drafts a knowledge-base article from a ticket using the
// chat provider and stores it as a draft.
type CreateArticleTool struct {
	deps tools.Deps
}

var _ tools.Tool = (*CreateArticleTool)(nil)

// NewCreateArticleTool creates the create_article tool
func NewCreateArticleTool(deps tools.Deps) *CreateArticleTool {
	return &CreateArticleTool{deps: deps}
}

func (t *CreateArticleTool) Name() string {
	return "create_article"
}

func (t *CreateArticleTool) Description() string {
	return "Drafts a knowledge-base article from a resolved ticket"
}

func (t *CreateArticleTool) ActionType() tracing.ActionType {
	return tracing.ActionMutation
}

type articleDraft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (t *CreateArticleTool) Execute(ctx context.Context, input tools.Input) (*tools.Output, error) {
	orgID, err := input.OrganizationID()
	if err != nil {
		return nil, err
	}
	ticketID, err := input.UUID("ticket_id")
	if err != nil {
		return nil, err
	}
	category := input.OptionalString("category")
	if category == "" {
		category = "general"
	}

	var authorID *uuid.UUID
	if raw := input.OptionalString("author_agent_id"); raw != "" {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, errors.NewValidationError("author_agent_id", "must be a valid UUID", raw)
		}
		authorID = &id
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

	draft, chatRetries, err := retry.DoWithResult(ctx, t.deps.Retry, func() (*articleDraft, error) {
		return t.draftFromTicket(ctx, tk)
	})
	if err != nil {
		return nil, err
	}

	art := &article.Article{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Title:          draft.Title,
		Body:           draft.Body,
		Category:       category,
		Status:         article.StatusDraft,
		AuthorAgentID:  authorID,
		SourceTicketID: &ticketID,
	}

	createRetries, err := t.deps.Retry.Do(ctx, func() error {
		return t.deps.ArticleRepo.Create(ctx, art)
	})
	if err != nil {
		return nil, err
	}

	return &tools.Output{
		Data: map[string]interface{}{
			"article_id":       art.ID.String(),
			"title":            art.Title,
			"category":         art.Category,
			"status":           string(art.Status),
			"source_ticket_id": ticketID.String(),
			"body_length":      len(art.Body),
			"ticket_resolved":  tk.Status == ticket.StatusResolved || tk.Status == ticket.StatusClosed,
		},
		Message:        "article drafted",
		RetryCount:     tkRetries + chatRetries + createRetries,
		TotalProcessed: 1,
	}, nil
}

// draftFromTicket asks the chat provider for a title/body pair grounded in
// the ticket content.
func (t *CreateArticleTool) draftFromTicket(ctx context.Context, tk *ticket.Ticket) (*articleDraft, error) {
	var prompt strings.Builder
	prompt.WriteString("Subject: " + tk.Subject + "\n\n")
	prompt.WriteString("Description:\n" + tk.Description + "\n")
	if len(tk.Tags) > 0 {
		prompt.WriteString("\nTags: " + strings.Join(tk.Tags, ", ") + "\n")
	}

	resp, err := t.deps.Chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: draftSystemPrompt},
			{Role: ai.RoleUser, Content: prompt.String()},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(resp.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var draft articleDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &draft); err != nil {
		return nil, errors.Wrap(errors.ErrDownstream, "completion is not a valid draft object")
	}
	if draft.Title == "" || draft.Body == "" {
		return nil, errors.Wrap(errors.ErrDownstream, "completion is missing title or body")
	}
	return &draft, nil
}

// Confidence scores the draft: operation success carries 0.4, generated
// content substance 0.3, source ticket maturity 0.3.
func (t *CreateArticleTool) Confidence(input tools.Input, output *tools.Output) float64 {
	var succeeded, substantial, matureSource bool
	if output != nil && output.Data != nil {
		succeeded = true
		if n, ok := output.Data["body_length"].(int); ok {
			substantial = n >= minBodyLength
		}
		matureSource, _ = output.Data["ticket_resolved"].(bool)
	}

	return tools.FactorSum(
		tools.Factor{Weight: 0.4, Holds: succeeded},
		tools.Factor{Weight: 0.3, Holds: substantial},
		tools.Factor{Weight: 0.3, Holds: matureSource},
	)
}
