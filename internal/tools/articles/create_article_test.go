package articles

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/adapters/ai"
	"minerva/internal/domain/article"
	"minerva/internal/domain/ticket"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/retry"
)

type fakeTicketRepo struct {
	tickets map[uuid.UUID]*ticket.Ticket
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id uuid.UUID) (*ticket.Ticket, error) {
	tk, ok := r.tickets[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "ticket %s", id)
	}
	copied := *tk
	return &copied, nil
}

func (r *fakeTicketRepo) List(context.Context, ticket.Filter) ([]ticket.Ticket, error) {
	return nil, nil
}

func (r *fakeTicketRepo) Count(context.Context, ticket.Filter) (int, error) { return 0, nil }

func (r *fakeTicketRepo) Create(_ context.Context, tk *ticket.Ticket) error {
	r.tickets[tk.ID] = tk
	return nil
}

func (r *fakeTicketRepo) UpdateStatus(context.Context, uuid.UUID, ticket.Status) error { return nil }

func (r *fakeTicketRepo) AssignIfUnassigned(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type fakeArticleRepo struct {
	created []*article.Article
}

func (r *fakeArticleRepo) Create(_ context.Context, a *article.Article) error {
	r.created = append(r.created, a)
	return nil
}

func (r *fakeArticleRepo) GetByID(context.Context, uuid.UUID) (*article.Article, error) {
	return nil, errors.ErrNotFound
}

func (r *fakeArticleRepo) ListByCategory(context.Context, uuid.UUID, string, int) ([]article.Article, error) {
	return nil, nil
}

type fakeChat struct {
	content string
	fails   int
	calls   int
}

func (c *fakeChat) Name() string { return "fake" }

func (c *fakeChat) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	c.calls++
	if c.fails > 0 {
		c.fails--
		return nil, errors.Wrap(errors.ErrRateLimitExceeded, "throttled")
	}
	return &ai.ChatResponse{Content: c.content}, nil
}

func draftJSON() string {
	body := strings.Repeat("Check the cable, then restart the service. ", 8)
	return `{"title": "Fixing hourly VPN drops", "body": "` + body + `"}`
}

func newDeps(tk *ticket.Ticket, chat *fakeChat) (tools.Deps, *fakeArticleRepo) {
	tickets := &fakeTicketRepo{tickets: map[uuid.UUID]*ticket.Ticket{}}
	if tk != nil {
		tickets.tickets[tk.ID] = tk
	}
	articles := &fakeArticleRepo{}

	policy := retry.New(retry.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	})

	return tools.Deps{
		TicketRepo:  tickets,
		ArticleRepo: articles,
		Chat:        chat,
		Retry:       policy,
	}, articles
}

func resolvedTicket(orgID uuid.UUID) *ticket.Ticket {
	return &ticket.Ticket{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Subject:        "vpn drops hourly",
		Description:    "tunnel renegotiation fails every 60 minutes",
		Status:         ticket.StatusResolved,
		Tags:           []string{"network", "vpn"},
	}
}

func TestCreateArticle_Success(t *testing.T) {
	orgID := uuid.New()
	tk := resolvedTicket(orgID)
	chat := &fakeChat{content: draftJSON()}
	deps, articles := newDeps(tk, chat)
	tool := NewCreateArticleTool(deps)

	out, err := tool.Execute(context.Background(), tools.Input{
		"organization_id": orgID.String(),
		"ticket_id":       tk.ID.String(),
		"category":        "networking",
	})
	require.NoError(t, err)

	require.Len(t, articles.created, 1)
	created := articles.created[0]
	assert.Equal(t, article.StatusDraft, created.Status)
	assert.Equal(t, "networking", created.Category)
	assert.Equal(t, tk.ID, *created.SourceTicketID)
	assert.Equal(t, "Fixing hourly VPN drops", created.Title)

	score := tool.Confidence(nil, out)
	assert.InDelta(t, 1.0, score, 1e-9, "substantial draft from a resolved ticket")
}

func TestCreateArticle_FencedCompletion(t *testing.T) {
	orgID := uuid.New()
	tk := resolvedTicket(orgID)
	chat := &fakeChat{content: "```json\n" + draftJSON() + "\n```"}
	deps, articles := newDeps(tk, chat)
	tool := NewCreateArticleTool(deps)

	_, err := tool.Execute(context.Background(), tools.Input{
		"organization_id": orgID.String(),
		"ticket_id":       tk.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, articles.created, 1)
}

func TestCreateArticle_MalformedCompletion(t *testing.T) {
	orgID := uuid.New()
	tk := resolvedTicket(orgID)
	chat := &fakeChat{content: "Sure! Here is your article: ..."}
	deps, articles := newDeps(tk, chat)
	tool := NewCreateArticleTool(deps)

	_, err := tool.Execute(context.Background(), tools.Input{
		"organization_id": orgID.String(),
		"ticket_id":       tk.ID.String(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDownstream))
	assert.Empty(t, articles.created)
}

func TestCreateArticle_RetriesThrottledProvider(t *testing.T) {
	orgID := uuid.New()
	tk := resolvedTicket(orgID)
	chat := &fakeChat{content: draftJSON(), fails: 2}
	deps, _ := newDeps(tk, chat)
	tool := NewCreateArticleTool(deps)

	out, err := tool.Execute(context.Background(), tools.Input{
		"organization_id": orgID.String(),
		"ticket_id":       tk.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.RetryCount)
	assert.Equal(t, 3, chat.calls)
}

func TestCreateArticle_MissingTicket(t *testing.T) {
	chat := &fakeChat{content: draftJSON()}
	deps, _ := newDeps(nil, chat)
	tool := NewCreateArticleTool(deps)

	_, err := tool.Execute(context.Background(), tools.Input{
		"organization_id": uuid.NewString(),
		"ticket_id":       uuid.NewString(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, 0, chat.calls, "no completion is requested for a missing ticket")
}

func TestCreateArticle_UnresolvedTicketLowersConfidence(t *testing.T) {
	orgID := uuid.New()
	tk := resolvedTicket(orgID)
	tk.Status = ticket.StatusOpen
	chat := &fakeChat{content: draftJSON()}
	deps, _ := newDeps(tk, chat)
	tool := NewCreateArticleTool(deps)

	out, err := tool.Execute(context.Background(), tools.Input{
		"organization_id": orgID.String(),
		"ticket_id":       tk.ID.String(),
	})
	require.NoError(t, err)

	score := tool.Confidence(nil, out)
	assert.InDelta(t, 0.7, score, 1e-9, "the source-maturity factor does not hold")
}
