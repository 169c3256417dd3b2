package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"minerva/internal/domain/invocation"
	"minerva/internal/metrics"
	"minerva/internal/tracing"
	"minerva/pkg/logger"
)

// recordTimeout bounds the best-effort metrics write on cancelled
// invocations so a dying request can still be counted.
const recordTimeout = 2 * time.Second

// UnknownToolName is the reserved name invocations of unregistered tools
// are recorded under, so misrouted calls stay visible in the aggregates.
const UnknownToolName = "_unknown"

// Executor runs tools inside the invocation envelope: input normalization,
// confidence scoring, trace emission and guaranteed metrics recording. The
// primary call path never waits on telemetry and never sees its failures.
type Executor struct {
	registry *Registry
	recorder invocation.Recorder
	tracer   *tracing.Tracer
	log      *logger.Logger
}

// NewExecutor creates a new executor. Recorder and tracer may be nil, in
// which case the corresponding telemetry is skipped.
func NewExecutor(registry *Registry, recorder invocation.Recorder, tracer *tracing.Tracer) *Executor {
	return &Executor{
		registry: registry,
		recorder: recorder,
		tracer:   tracer,
		log:      logger.Get().With("component", "tool_executor"),
	}
}

// Invoke resolves a tool by name and runs it. Unknown tool names are
// reported in-band like any other failure.
func (e *Executor) Invoke(ctx context.Context, toolName string, rawInput interface{}) Result {
	return e.InvokeNested(ctx, toolName, rawInput, nil)
}

// InvokeNested runs a tool as a child of an existing trace context, so
// tools that internally call other tools form a single logical trace tree.
func (e *Executor) InvokeNested(ctx context.Context, toolName string, rawInput interface{}, parent *tracing.Context) Result {
	t, err := e.registry.Resolve(toolName)
	if err != nil {
		res := Result{Success: false, Error: classifyError(ctx, err)}
		e.recordUnknown(ctx, toolName, res)
		return res
	}
	return e.run(ctx, t, rawInput, parent)
}

// recordUnknown counts calls to unregistered names under a reserved tool
// name. The requested name goes into metadata, not the metric label, so a
// misbehaving caller cannot mint unbounded label values.
func (e *Executor) recordUnknown(ctx context.Context, requested string, res Result) {
	metrics.ToolInvocations.WithLabelValues(UnknownToolName, "error").Inc()

	if e.recorder == nil {
		return
	}

	rec := invocation.Record{
		ToolName:  UnknownToolName,
		Timestamp: time.Now(),
		Success:   false,
		Metadata:  map[string]interface{}{"requested_tool": requested},
	}
	if res.Error != nil {
		rec.ErrorType = res.Error.Type
		rec.ErrorMessage = res.Error.Message
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := e.recorder.Record(recordCtx, rec); err != nil {
		metrics.MetricWriteFailures.Inc()
		e.log.Errorf("Failed to record call to unknown tool %q: %v", requested, err)
	}
}

func (e *Executor) run(ctx context.Context, t Tool, rawInput interface{}, parent *tracing.Context) (res Result) {
	start := time.Now()
	traceCtx := tracing.NewContext(parent)

	var (
		orgID uuid.UUID
		out   *Output
	)

	// The deferred block is the single place metrics and traces are
	// emitted, so no code path can leave an invocation unrecorded.
	defer func() {
		if p := recover(); p != nil {
			e.log.Errorf("Tool %s panicked: %v", t.Name(), p)
			res = Result{
				Success: false,
				Error: &ResultError{
					Type:    ErrorTypeInternal,
					Message: "an internal error occurred",
				},
			}
		}
		e.finish(ctx, t, orgID, traceCtx, start, out, res)
	}()

	input, err := ParseInput(rawInput)
	if err != nil {
		return Result{Success: false, Error: classifyError(ctx, err)}
	}

	orgID, err = input.OrganizationID()
	if err != nil {
		return Result{Success: false, Error: classifyError(ctx, err)}
	}

	out, err = t.Execute(ctx, input)
	if err != nil {
		out = nil
		return Result{Success: false, Error: classifyError(ctx, err)}
	}
	if out == nil {
		out = &Output{}
	}

	return Result{
		Success:    true,
		Data:       out.Data,
		Message:    out.Message,
		Confidence: e.safeConfidence(t, input, out),
	}
}

// safeConfidence shields the invocation from scoring bugs: a panicking or
// out-of-range scorer yields 0 instead of aborting the call.
func (e *Executor) safeConfidence(t Tool, input Input, out *Output) (score float64) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Errorf("Confidence scorer for %s panicked: %v", t.Name(), p)
			score = 0
		}
	}()

	score = t.Confidence(input, out)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// finish emits exactly one invocation record and one trace record. It runs
// on a detached short-timeout context so a cancelled caller still gets
// counted, and swallows every telemetry failure.
func (e *Executor) finish(ctx context.Context, t Tool, orgID uuid.UUID, traceCtx tracing.Context, start time.Time, out *Output, res Result) {
	latency := time.Since(start)

	status := "success"
	if !res.Success {
		status = "error"
	}
	metrics.ToolInvocations.WithLabelValues(t.Name(), status).Inc()
	metrics.ToolLatency.WithLabelValues(t.Name()).Observe(latency.Seconds())

	perf := map[string]interface{}{
		"duration_ms": latency.Milliseconds(),
	}
	var traceData map[string]interface{}
	tracePerf := tracing.Performance{DurationMs: latency.Milliseconds()}
	if out != nil {
		if out.RetryCount > 0 {
			metrics.ToolRetries.WithLabelValues(t.Name()).Add(float64(out.RetryCount))
		}
		perf["retry_count"] = out.RetryCount
		perf["total_processed"] = out.TotalProcessed
		tracePerf.RetryCount = out.RetryCount
		tracePerf.TotalProcessed = out.TotalProcessed
		tracePerf.QueryComplexity = out.QueryComplexity
		traceData = out.Data
	}

	rec := invocation.Record{
		ToolName:       t.Name(),
		OrganizationID: orgID,
		Timestamp:      start,
		Success:        res.Success,
		LatencyMs:      latency.Milliseconds(),
		Confidence:     res.Confidence,
		Metadata:       map[string]interface{}{"performance": perf},
	}
	if !res.Success {
		rec.Confidence = 0
		if res.Error != nil {
			rec.ErrorType = res.Error.Type
			rec.ErrorMessage = res.Error.Message
		} else {
			rec.ErrorType = ErrorTypeInternal
		}
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if e.recorder != nil {
		if err := e.recorder.Record(recordCtx, rec); err != nil {
			metrics.MetricWriteFailures.Inc()
			e.log.Errorf("Failed to record invocation of %s: %v", t.Name(), err)
		}
	}

	if e.tracer != nil {
		trace := tracing.Record{
			ToolName:       t.Name(),
			ActionType:     t.ActionType(),
			OrganizationID: orgID,
			StartTime:      start,
			Context:        traceCtx,
			Performance:    tracePerf,
			Data:           traceData,
		}
		if !res.Success && res.Error != nil {
			trace.Error = res.Error.Type + ": " + res.Error.Message
		}
		e.tracer.Add(recordCtx, trace)
	}
}
