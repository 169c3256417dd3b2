package invocation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MetricsQuery filters a windowed aggregate. ToolName and OrganizationID
// are optional; Since/Until bound the window.
type MetricsQuery struct {
	ToolName       string
	OrganizationID uuid.UUID
	Since          time.Time
	Until          time.Time
}

// TrendQuery buckets a window into sub-periods
type TrendQuery struct {
	ToolName       string
	OrganizationID uuid.UUID
	Since          time.Time
	Until          time.Time
	BucketSize     time.Duration
}

// Recorder is the write-side contract used by the tool executor. Recording is
// fire-and-forget from the executor's perspective.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Repository defines the interface for invocation metrics data access (ClickHouse)
type Repository interface {
	Insert(ctx context.Context, rec Record) error
	InsertBatch(ctx context.Context, recs []Record) error

	// ToolMetrics computes the windowed aggregate matching the query
	ToolMetrics(ctx context.Context, q MetricsQuery) (*ToolMetrics, error)

	// PeriodAggregates returns one aggregate per bucket, oldest first
	PeriodAggregates(ctx context.Context, q TrendQuery) ([]PeriodAggregate, error)
}
