package invocation

import (
	"time"

	"github.com/google/uuid"
)

// Record represents a single completed tool invocation (for insertion).
// Created exactly once per invocation, immediately after it completes,
// success or failure; never mutated afterwards.
type Record struct {
	ToolName       string    `ch:"tool_name" json:"tool_name"`
	OrganizationID uuid.UUID `ch:"organization_id" json:"organization_id"`
	Timestamp      time.Time `ch:"timestamp" json:"timestamp"`

	Success    bool    `ch:"success" json:"success"`
	LatencyMs  int64   `ch:"latency_ms" json:"latency_ms"`
	Confidence float64 `ch:"confidence" json:"confidence"`

	// Present iff Success is false
	ErrorType    string `ch:"error_type" json:"error_type,omitempty"`
	ErrorMessage string `ch:"error_message" json:"error_message,omitempty"`

	// Tool-specific counts, filters used, retry count
	Metadata map[string]interface{} `ch:"-" json:"metadata,omitempty"`
}

// ToolMetrics is a windowed aggregate over invocation records
type ToolMetrics struct {
	TotalCalls        uint64           `json:"total_calls"`
	SuccessfulCalls   uint64           `json:"successful_calls"`
	FailedCalls       uint64           `json:"failed_calls"`
	AverageLatencyMs  float64          `json:"average_latency_ms"`
	AverageConfidence float64          `json:"average_confidence"`
	P95LatencyMs      float64          `json:"p95_latency_ms"`
	P99LatencyMs      float64          `json:"p99_latency_ms"`
	ErrorDistribution map[string]int64 `json:"error_distribution"`
}

// SuccessRate returns the fraction of successful calls, 0 when empty
func (m *ToolMetrics) SuccessRate() float64 {
	if m.TotalCalls == 0 {
		return 0
	}
	return float64(m.SuccessfulCalls) / float64(m.TotalCalls)
}

// PeriodAggregate is one trend bucket within a window
type PeriodAggregate struct {
	PeriodStart       time.Time `ch:"period_start" json:"period_start"`
	TotalCalls        uint64    `ch:"total_calls" json:"total_calls"`
	SuccessfulCalls   uint64    `ch:"successful_calls" json:"successful_calls"`
	AverageLatencyMs  float64   `ch:"avg_latency_ms" json:"average_latency_ms"`
	AverageConfidence float64   `ch:"avg_confidence" json:"average_confidence"`
}

// SuccessRate returns the fraction of successful calls in the period
func (p *PeriodAggregate) SuccessRate() float64 {
	if p.TotalCalls == 0 {
		return 0
	}
	return float64(p.SuccessfulCalls) / float64(p.TotalCalls)
}
