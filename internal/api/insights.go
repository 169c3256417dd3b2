package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"minerva/internal/domain/invocation"
	"minerva/internal/insights"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const defaultTimeframe = "24h"

// InsightsService is the read surface the dashboard endpoints expose
type InsightsService interface {
	GetToolMetrics(ctx context.Context, toolName, timeframe string, organizationID uuid.UUID) (*invocation.ToolMetrics, error)
	AnalyzePerformanceTrends(ctx context.Context, toolName, timeframe string, organizationID uuid.UUID) (*insights.TrendReport, error)
}

var _ InsightsService = (*insights.Service)(nil)

// InsightsHandler serves aggregate metrics and trend reports over HTTP
type InsightsHandler struct {
	svc InsightsService
	log *logger.Logger
}

// NewInsightsHandler creates the insights read handler
func NewInsightsHandler(svc InsightsService) *InsightsHandler {
	return &InsightsHandler{
		svc: svc,
		log: logger.Get().With("component", "insights_api"),
	}
}

// HandleToolMetrics serves GET /api/v1/insights/metrics.
// Query params: tool (optional), timeframe (default 24h), organization_id (optional).
func (h *InsightsHandler) HandleToolMetrics(w http.ResponseWriter, r *http.Request) {
	toolName, timeframe, orgID, err := readInsightsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.GetToolMetrics(r.Context(), toolName, timeframe, orgID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleTrends serves GET /api/v1/insights/trends.
// Query params: tool (required), timeframe (default 24h), organization_id (optional).
func (h *InsightsHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	toolName, timeframe, orgID, err := readInsightsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.svc.AnalyzePerformanceTrends(r.Context(), toolName, timeframe, orgID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *InsightsHandler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, errors.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Errorf("Insights query failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func readInsightsQuery(r *http.Request) (toolName, timeframe string, orgID uuid.UUID, err error) {
	q := r.URL.Query()
	toolName = q.Get("tool")
	timeframe = q.Get("timeframe")
	if timeframe == "" {
		timeframe = defaultTimeframe
	}
	if raw := q.Get("organization_id"); raw != "" {
		if orgID, err = uuid.Parse(raw); err != nil {
			err = errors.Wrapf(errors.ErrInvalidInput, "organization_id %q is not a UUID", raw)
		}
	}
	return toolName, timeframe, orgID, err
}
