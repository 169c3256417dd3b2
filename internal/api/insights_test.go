package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/invocation"
	"minerva/internal/insights"
	"minerva/pkg/errors"
)

type fakeInsightsService struct {
	lastTool      string
	lastTimeframe string
	lastOrgID     uuid.UUID

	metrics *invocation.ToolMetrics
	report  *insights.TrendReport
	err     error
}

func (s *fakeInsightsService) GetToolMetrics(ctx context.Context, toolName, timeframe string, organizationID uuid.UUID) (*invocation.ToolMetrics, error) {
	s.lastTool, s.lastTimeframe, s.lastOrgID = toolName, timeframe, organizationID
	return s.metrics, s.err
}

func (s *fakeInsightsService) AnalyzePerformanceTrends(ctx context.Context, toolName, timeframe string, organizationID uuid.UUID) (*insights.TrendReport, error) {
	s.lastTool, s.lastTimeframe, s.lastOrgID = toolName, timeframe, organizationID
	return s.report, s.err
}

func TestInsightsHandler_ToolMetrics(t *testing.T) {
	svc := &fakeInsightsService{
		metrics: &invocation.ToolMetrics{TotalCalls: 42, SuccessfulCalls: 40},
	}
	h := NewInsightsHandler(svc)

	orgID := uuid.New()
	req := httptest.NewRequest("GET", "/api/v1/insights/metrics?tool=fetch_tickets&timeframe=7d&organization_id="+orgID.String(), nil)
	w := httptest.NewRecorder()

	h.HandleToolMetrics(w, req)

	require.Equal(t, 200, w.Code)
	assert.Equal(t, "fetch_tickets", svc.lastTool)
	assert.Equal(t, "7d", svc.lastTimeframe)
	assert.Equal(t, orgID, svc.lastOrgID)

	var got invocation.ToolMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint64(42), got.TotalCalls)
}

func TestInsightsHandler_DefaultTimeframe(t *testing.T) {
	svc := &fakeInsightsService{metrics: &invocation.ToolMetrics{}}
	h := NewInsightsHandler(svc)

	w := httptest.NewRecorder()
	h.HandleToolMetrics(w, httptest.NewRequest("GET", "/api/v1/insights/metrics", nil))

	require.Equal(t, 200, w.Code)
	assert.Equal(t, "24h", svc.lastTimeframe)
	assert.Equal(t, uuid.Nil, svc.lastOrgID)
}

func TestInsightsHandler_BadOrganizationID(t *testing.T) {
	svc := &fakeInsightsService{}
	h := NewInsightsHandler(svc)

	w := httptest.NewRecorder()
	h.HandleToolMetrics(w, httptest.NewRequest("GET", "/api/v1/insights/metrics?organization_id=not-a-uuid", nil))

	assert.Equal(t, 400, w.Code)
	assert.Empty(t, svc.lastTimeframe, "the service must not be called")
}

func TestInsightsHandler_InvalidInputIsBadRequest(t *testing.T) {
	svc := &fakeInsightsService{err: errors.Wrap(errors.ErrInvalidInput, `unknown timeframe "90d"`)}
	h := NewInsightsHandler(svc)

	w := httptest.NewRecorder()
	h.HandleTrends(w, httptest.NewRequest("GET", "/api/v1/insights/trends?tool=fetch_tickets&timeframe=90d", nil))

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "90d")
}

func TestInsightsHandler_InternalErrorsAreOpaque(t *testing.T) {
	svc := &fakeInsightsService{err: errors.New("clickhouse: connection refused")}
	h := NewInsightsHandler(svc)

	w := httptest.NewRecorder()
	h.HandleToolMetrics(w, httptest.NewRequest("GET", "/api/v1/insights/metrics", nil))

	assert.Equal(t, 500, w.Code)
	assert.NotContains(t, w.Body.String(), "clickhouse")
}

func TestInsightsHandler_Trends(t *testing.T) {
	svc := &fakeInsightsService{
		report: &insights.TrendReport{ToolName: "assign_ticket", Timeframe: "24h"},
	}
	h := NewInsightsHandler(svc)

	w := httptest.NewRecorder()
	h.HandleTrends(w, httptest.NewRequest("GET", "/api/v1/insights/trends?tool=assign_ticket", nil))

	require.Equal(t, 200, w.Code)

	var got insights.TrendReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "assign_ticket", got.ToolName)
}
