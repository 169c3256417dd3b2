package tracing

import (
	"context"
	"encoding/json"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseSink stores trace batches in a ClickHouse table, as an
// alternative to shipping them through Kafka.
type ClickHouseSink struct {
	conn driver.Conn
}

// NewClickHouseSink creates a new ClickHouse-backed trace sink
func NewClickHouseSink(conn driver.Conn) *ClickHouseSink {
	return &ClickHouseSink{conn: conn}
}

// SendBatch inserts the batch with a single prepared insert
func (s *ClickHouseSink) SendBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tool_traces (
			tool_name, action_type, organization_id, start_time,
			trace_id, root_trace_id, parent_trace_id, depth,
			duration_ms, query_complexity, total_processed, retry_count,
			data, error
		)
	`)
	if err != nil {
		return err
	}

	for _, rec := range records {
		var data string
		if len(rec.Data) > 0 {
			if raw, err := json.Marshal(rec.Data); err == nil {
				data = string(raw)
			}
		}

		err := batch.Append(
			rec.ToolName, string(rec.ActionType), rec.OrganizationID, rec.StartTime,
			rec.Context.TraceID, rec.Context.RootTraceID, rec.Context.ParentTraceID, int32(rec.Context.Depth),
			rec.Performance.DurationMs, int32(rec.Performance.QueryComplexity),
			int32(rec.Performance.TotalProcessed), int32(rec.Performance.RetryCount),
			data, rec.Error,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
