package clickhouse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"minerva/internal/domain/invocation"
	"minerva/pkg/errors"
)

// Compile-time check
var _ invocation.Repository = (*InvocationRepository)(nil)

// InvocationRepository implements invocation.Repository using ClickHouse
type InvocationRepository struct {
	conn driver.Conn
}

// NewInvocationRepository creates a new invocation metrics repository
func NewInvocationRepository(conn driver.Conn) *InvocationRepository {
	return &InvocationRepository{conn: conn}
}

func marshalMetadata(meta map[string]interface{}) string {
	if len(meta) == 0 {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Insert inserts a single invocation record
func (r *InvocationRepository) Insert(ctx context.Context, rec invocation.Record) error {
	query := `
		INSERT INTO tool_invocations (
			tool_name, organization_id, timestamp,
			success, latency_ms, confidence,
			error_type, error_message, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	return r.conn.Exec(ctx, query,
		rec.ToolName, rec.OrganizationID, rec.Timestamp,
		rec.Success, rec.LatencyMs, rec.Confidence,
		rec.ErrorType, rec.ErrorMessage, marshalMetadata(rec.Metadata),
	)
}

// InsertBatch inserts multiple invocation records
func (r *InvocationRepository) InsertBatch(ctx context.Context, recs []invocation.Record) error {
	if len(recs) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO tool_invocations (
			tool_name, organization_id, timestamp,
			success, latency_ms, confidence,
			error_type, error_message, metadata
		)
	`)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		err := batch.Append(
			rec.ToolName, rec.OrganizationID, rec.Timestamp,
			rec.Success, rec.LatencyMs, rec.Confidence,
			rec.ErrorType, rec.ErrorMessage, marshalMetadata(rec.Metadata),
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// ToolMetrics computes the windowed aggregate matching the query
func (r *InvocationRepository) ToolMetrics(ctx context.Context, q invocation.MetricsQuery) (*invocation.ToolMetrics, error) {
	where, args := buildInvocationWhere(q.ToolName, q.OrganizationID, q.Since, q.Until)

	var row struct {
		TotalCalls        uint64  `ch:"total_calls"`
		SuccessfulCalls   uint64  `ch:"successful_calls"`
		FailedCalls       uint64  `ch:"failed_calls"`
		AverageLatencyMs  float64 `ch:"avg_latency_ms"`
		AverageConfidence float64 `ch:"avg_confidence"`
		P95LatencyMs      float64 `ch:"p95_latency_ms"`
		P99LatencyMs      float64 `ch:"p99_latency_ms"`
	}

	query := `
		SELECT
			count() AS total_calls,
			countIf(success) AS successful_calls,
			countIf(NOT success) AS failed_calls,
			avgOrDefault(latency_ms) AS avg_latency_ms,
			avgOrDefault(confidence) AS avg_confidence,
			quantileOrDefault(0.95)(latency_ms) AS p95_latency_ms,
			quantileOrDefault(0.99)(latency_ms) AS p99_latency_ms
		FROM tool_invocations
		` + where

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query tool metrics")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.Wrap(errors.ErrInternal, "empty aggregate result")
	}
	if err := rows.ScanStruct(&row); err != nil {
		return nil, errors.Wrap(err, "scan tool metrics")
	}

	metrics := &invocation.ToolMetrics{
		TotalCalls:        row.TotalCalls,
		SuccessfulCalls:   row.SuccessfulCalls,
		FailedCalls:       row.FailedCalls,
		AverageLatencyMs:  row.AverageLatencyMs,
		AverageConfidence: row.AverageConfidence,
		P95LatencyMs:      row.P95LatencyMs,
		P99LatencyMs:      row.P99LatencyMs,
		ErrorDistribution: map[string]int64{},
	}

	distQuery := `
		SELECT error_type, count() AS cnt
		FROM tool_invocations
		` + where + `
		AND error_type != ''
		GROUP BY error_type`

	distRows, err := r.conn.Query(ctx, distQuery, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query error distribution")
	}
	defer distRows.Close()

	for distRows.Next() {
		var errorType string
		var cnt uint64
		if err := distRows.Scan(&errorType, &cnt); err != nil {
			return nil, errors.Wrap(err, "scan error distribution")
		}
		metrics.ErrorDistribution[errorType] = int64(cnt)
	}

	return metrics, distRows.Err()
}

// PeriodAggregates returns one aggregate per bucket within the window, oldest first
func (r *InvocationRepository) PeriodAggregates(ctx context.Context, q invocation.TrendQuery) ([]invocation.PeriodAggregate, error) {
	if q.BucketSize <= 0 {
		q.BucketSize = 24 * time.Hour
	}

	// Question-mark placeholders throughout: the interval argument comes
	// first and positional $N indexes cannot be mixed with it.
	where := "WHERE timestamp >= ? AND timestamp < ?"
	args := []interface{}{int64(q.BucketSize.Seconds()), q.Since, q.Until}
	if q.ToolName != "" {
		where += " AND tool_name = ?"
		args = append(args, q.ToolName)
	}
	if q.OrganizationID != uuid.Nil {
		where += " AND organization_id = ?"
		args = append(args, q.OrganizationID)
	}

	query := `
		SELECT
			toStartOfInterval(timestamp, INTERVAL ? SECOND) AS period_start,
			count() AS total_calls,
			countIf(success) AS successful_calls,
			avgOrDefault(latency_ms) AS avg_latency_ms,
			avgOrDefault(confidence) AS avg_confidence
		FROM tool_invocations
		` + where + `
		GROUP BY period_start
		ORDER BY period_start ASC`

	var periods []invocation.PeriodAggregate
	if err := r.conn.Select(ctx, &periods, query, args...); err != nil {
		return nil, errors.Wrap(err, "query period aggregates")
	}
	return periods, nil
}

// buildInvocationWhere assembles the shared WHERE clause for aggregate reads
func buildInvocationWhere(toolName string, orgID uuid.UUID, since, until time.Time) (string, []interface{}) {
	where := "WHERE timestamp >= $1 AND timestamp < $2"
	args := []interface{}{since, until}

	if toolName != "" {
		args = append(args, toolName)
		where += " AND tool_name = $3"
	}
	if orgID != uuid.Nil {
		args = append(args, orgID)
		if toolName != "" {
			where += " AND organization_id = $4"
		} else {
			where += " AND organization_id = $3"
		}
	}
	return where, args
}
