package tools

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/invocation"
	"minerva/internal/tracing"
	"minerva/pkg/errors"
)

type captureRecorder struct {
	mu   sync.Mutex
	recs []invocation.Record
	err  error
}

func (r *captureRecorder) Record(_ context.Context, rec invocation.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.recs = append(r.recs, rec)
	return nil
}

func (r *captureRecorder) records() []invocation.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]invocation.Record, len(r.recs))
	copy(out, r.recs)
	return out
}

type stubTool struct {
	name       string
	action     tracing.ActionType
	execute    func(ctx context.Context, input Input) (*Output, error)
	confidence func(input Input, output *Output) float64
	calls      int
}

func (t *stubTool) Name() string                   { return t.name }
func (t *stubTool) Description() string            { return "stub" }
func (t *stubTool) ActionType() tracing.ActionType { return t.action }

func (t *stubTool) Execute(ctx context.Context, input Input) (*Output, error) {
	t.calls++
	return t.execute(ctx, input)
}

func (t *stubTool) Confidence(input Input, output *Output) float64 {
	if t.confidence != nil {
		return t.confidence(input, output)
	}
	return 0.8
}

func newTestExecutor(t *testing.T, tool Tool, rec invocation.Recorder) *Executor {
	t.Helper()
	registry, err := NewRegistry(tool)
	require.NoError(t, err)
	return NewExecutor(registry, rec, nil)
}

func validInput(extra map[string]interface{}) map[string]interface{} {
	input := map[string]interface{}{
		"organization_id": uuid.NewString(),
	}
	for k, v := range extra {
		input[k] = v
	}
	return input
}

func TestExecutor_Success(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "echo",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{
				Data:           map[string]interface{}{"value": 42},
				Message:        "ok",
				TotalProcessed: 1,
			}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "echo", validInput(nil))

	require.True(t, res.Success)
	assert.Nil(t, res.Error)
	assert.Equal(t, "ok", res.Message)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "echo", recs[0].ToolName)
	assert.True(t, recs[0].Success)
	assert.NotEqual(t, uuid.Nil, recs[0].OrganizationID)
	assert.GreaterOrEqual(t, recs[0].LatencyMs, int64(0))
	assert.InDelta(t, 0.8, recs[0].Confidence, 1e-9)
}

func TestExecutor_JSONStringInput(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "echo",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{Data: map[string]interface{}{"got": input["key"]}}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(),
		"echo", `{"organization_id":"`+uuid.NewString()+`","key":"v"}`)

	require.True(t, res.Success)
	assert.Equal(t, "v", res.Data["got"])
}

func TestExecutor_MalformedInput(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "echo",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	for name, raw := range map[string]interface{}{
		"not json":    "{{{",
		"wrong type":  12345,
		"json scalar": `"hello"`,
	} {
		t.Run(name, func(t *testing.T) {
			res := exec.Invoke(context.Background(), "echo", raw)
			require.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, ErrorTypeInvalidInput, res.Error.Type)
		})
	}

	assert.Equal(t, 0, tool.calls, "malformed input must never reach the tool")
	assert.Len(t, rec.records(), 3, "every invocation gets a record")
}

func TestExecutor_MissingOrganizationID(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "echo",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "echo", map[string]interface{}{})

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorTypeInvalidInput, res.Error.Type)
	assert.Equal(t, 0, tool.calls)

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Success)
	assert.Zero(t, recs[0].Confidence)
	assert.Equal(t, ErrorTypeInvalidInput, recs[0].ErrorType)
}

func TestExecutor_DownstreamFailure(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "flaky",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return nil, errors.Wrap(errors.ErrDownstream, "db is down")
		},
		confidence: func(Input, *Output) float64 { return 0.9 },
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "flaky", validInput(nil))

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorTypeDownstream, res.Error.Type)
	assert.Zero(t, res.Confidence, "confidence is forced to 0 on failure")

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Success)
	assert.Zero(t, recs[0].Confidence)
	assert.Equal(t, ErrorTypeDownstream, recs[0].ErrorType)
}

func TestExecutor_NotFound(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "lookup",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return nil, errors.Wrap(errors.ErrNotFound, "no such ticket")
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "lookup", validInput(nil))

	require.False(t, res.Success)
	assert.Equal(t, ErrorTypeNotFound, res.Error.Type)
	require.Len(t, rec.records(), 1)
}

func TestExecutor_PanicIsInternal(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "boom",
		action: tracing.ActionMutation,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			panic("unexpected nil")
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "boom", validInput(nil))

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorTypeInternal, res.Error.Type)

	recs := rec.records()
	require.Len(t, recs, 1, "a panicking tool still gets recorded")
	assert.False(t, recs[0].Success)
	assert.Equal(t, ErrorTypeInternal, recs[0].ErrorType)
}

func TestExecutor_CancelledContext(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "slow",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return nil, ctx.Err()
		},
	}
	exec := newTestExecutor(t, tool, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := exec.Invoke(ctx, "slow", validInput(nil))

	require.False(t, res.Success)
	assert.Equal(t, ErrorTypeCancelled, res.Error.Type)

	recs := rec.records()
	require.Len(t, recs, 1, "cancellation still gets recorded")
	assert.Equal(t, ErrorTypeCancelled, recs[0].ErrorType)
}

func TestExecutor_UnknownTool(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "known",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "unknown", validInput(nil))

	require.False(t, res.Success)
	assert.Equal(t, ErrorTypeNotFound, res.Error.Type)
	assert.Zero(t, tool.calls)

	// Misrouted calls land under the reserved name with the requested one
	// preserved in metadata
	recs := rec.records()
	require.Len(t, recs, 1)
	assert.Equal(t, UnknownToolName, recs[0].ToolName)
	assert.False(t, recs[0].Success)
	assert.Equal(t, ErrorTypeNotFound, recs[0].ErrorType)
	assert.Equal(t, "unknown", recs[0].Metadata["requested_tool"])
}

func TestExecutor_ConfidenceClamping(t *testing.T) {
	for name, tc := range map[string]struct {
		score float64
		want  float64
	}{
		"above one":  {score: 1.7, want: 1},
		"below zero": {score: -0.3, want: 0},
		"in range":   {score: 0.42, want: 0.42},
	} {
		t.Run(name, func(t *testing.T) {
			rec := &captureRecorder{}
			tool := &stubTool{
				name:   "scored",
				action: tracing.ActionQuery,
				execute: func(ctx context.Context, input Input) (*Output, error) {
					return &Output{Data: map[string]interface{}{"x": 1}}, nil
				},
				confidence: func(Input, *Output) float64 { return tc.score },
			}
			exec := newTestExecutor(t, tool, rec)

			res := exec.Invoke(context.Background(), "scored", validInput(nil))
			require.True(t, res.Success)
			assert.InDelta(t, tc.want, res.Confidence, 1e-9)
		})
	}
}

func TestExecutor_ScorerPanicYieldsZero(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "badscore",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{Data: map[string]interface{}{"x": 1}}, nil
		},
		confidence: func(Input, *Output) float64 { panic("bad arithmetic") },
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "badscore", validInput(nil))

	require.True(t, res.Success, "a scoring bug never fails the invocation")
	assert.Zero(t, res.Confidence)
}

func TestExecutor_RetryCountInMetadata(t *testing.T) {
	rec := &captureRecorder{}
	tool := &stubTool{
		name:   "retried",
		action: tracing.ActionMutation,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{
				Data:       map[string]interface{}{"done": true},
				RetryCount: 2,
			}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "retried", validInput(nil))
	require.True(t, res.Success)

	recs := rec.records()
	require.Len(t, recs, 1)
	perf, ok := recs[0].Metadata["performance"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, perf["retry_count"])
}

func TestExecutor_RecorderFailureIsSwallowed(t *testing.T) {
	rec := &captureRecorder{err: errors.New("clickhouse unreachable")}
	tool := &stubTool{
		name:   "echo",
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{Data: map[string]interface{}{"x": 1}}, nil
		},
	}
	exec := newTestExecutor(t, tool, rec)

	res := exec.Invoke(context.Background(), "echo", validInput(nil))
	require.True(t, res.Success, "telemetry failures never surface")
}
