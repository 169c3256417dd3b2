// Package catalog assembles the tool registry from whatever dependencies
// the process was started with. A tool whose backing stores are absent is
// skipped instead of being registered broken.
package catalog

import (
	"minerva/internal/tools"
	"minerva/internal/tools/articles"
	"minerva/internal/tools/assignment"
	"minerva/internal/tools/tickets"
)

// Build registers every tool whose dependencies are wired
func Build(deps tools.Deps) (*tools.Registry, error) {
	var list []tools.Tool

	if deps.HasTicketData() {
		list = append(list,
			tickets.NewFetchTicketsTool(deps),
			tickets.NewGetTicketTool(deps),
		)
	}
	if deps.HasAssignmentData() {
		list = append(list, assignment.NewAssignTicketTool(deps))
	}
	if deps.HasKnowledgeBase() {
		list = append(list, articles.NewCreateArticleTool(deps))
	}

	return tools.NewRegistry(list...)
}
