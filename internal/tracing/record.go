package tracing

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies what a tool invocation did
type ActionType string

const (
	ActionQuery    ActionType = "query"
	ActionMutation ActionType = "mutation"
)

// Context links a trace record into a logical trace tree. Every span gets
// its own id; nested tool calls share a root id, point at their immediate
// parent and increment depth. Each record remains independently samplable.
type Context struct {
	TraceID       string    `json:"trace_id"`
	RootTraceID   string    `json:"root_trace_id"`
	ParentTraceID string    `json:"parent_trace_id,omitempty"`
	Depth         int       `json:"depth"`
	StartTime     time.Time `json:"start_time"`
}

// NewContext derives a trace context from an optional parent. Without a
// parent the fresh span id doubles as the root id at depth 1.
func NewContext(parent *Context) Context {
	now := time.Now()
	id := uuid.NewString()
	if parent == nil {
		return Context{
			TraceID:     id,
			RootTraceID: id,
			Depth:       1,
			StartTime:   now,
		}
	}
	return Context{
		TraceID:       id,
		RootTraceID:   parent.RootTraceID,
		ParentTraceID: parent.TraceID,
		Depth:         parent.Depth + 1,
		StartTime:     now,
	}
}

// Performance holds execution measurements for a trace record
type Performance struct {
	DurationMs      int64 `json:"duration_ms"`
	QueryComplexity int   `json:"query_complexity,omitempty"`
	TotalProcessed  int   `json:"total_processed,omitempty"`
	RetryCount      int   `json:"retry_count,omitempty"`
}

// Record is a single tool execution span. The tracer owns queued records;
// ownership transfers to the sink at flush time.
type Record struct {
	ToolName       string                 `json:"tool_name"`
	ActionType     ActionType             `json:"action_type"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	StartTime      time.Time              `json:"start_time"`
	Context        Context                `json:"context"`
	Performance    Performance            `json:"performance"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
}
