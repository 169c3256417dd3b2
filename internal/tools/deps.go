package tools

import (
	"minerva/internal/adapters/ai"
	"minerva/internal/domain/agent"
	"minerva/internal/domain/article"
	"minerva/internal/domain/ticket"
	"minerva/pkg/logger"
	"minerva/pkg/retry"
)

// Deps bundles the dependencies concrete tools are constructed with.
// Everything is injected; tools never reach for module-level singletons, so
// tests can substitute fakes freely.
type Deps struct {
	TicketRepo  ticket.Repository
	AgentRepo   agent.Repository
	ArticleRepo article.Repository
	Chat        ai.ChatProvider
	Retry       *retry.Policy
	Log         *logger.Logger
}

// HasTicketData reports whether the ticket repository is wired
func (d Deps) HasTicketData() bool {
	return d.TicketRepo != nil
}

// HasAssignmentData reports whether assignment repositories are wired
func (d Deps) HasAssignmentData() bool {
	return d.TicketRepo != nil && d.AgentRepo != nil
}

// HasChat reports whether an AI chat provider is available
func (d Deps) HasChat() bool {
	return d.Chat != nil
}

// HasKnowledgeBase reports whether article drafting is fully wired
func (d Deps) HasKnowledgeBase() bool {
	return d.HasTicketData() && d.ArticleRepo != nil && d.HasChat()
}
