package tools

import (
	"context"

	"minerva/internal/tracing"
)

// Tool is the unit of work behind the AI assistant. Implementations validate
// their input, perform one domain operation and score the outcome. The
// surrounding envelope (metrics, tracing, error encoding) is owned by the
// Executor, never by the tool itself.
type Tool interface {
	// Name is stable and unique; it keys metrics and registry lookups.
	Name() string

	// Description is consumed by the calling agent's tool-selection step.
	Description() string

	// ActionType classifies the tool for tracing purposes.
	ActionType() tracing.ActionType

	// Execute performs the domain operation. Validation failures must be
	// returned as ErrInvalidInput-wrapped errors before any downstream call.
	Execute(ctx context.Context, input Input) (*Output, error)

	// Confidence scores the outcome in [0,1]. Must be a pure function of
	// (input, output) and must not panic on odd shapes; the Executor
	// recovers and forces 0 if it does.
	Confidence(input Input, output *Output) float64
}

// Output is a successful tool execution result plus its performance
// observations, which the Executor folds into metrics and traces.
type Output struct {
	Data    map[string]interface{}
	Message string

	RetryCount      int
	TotalProcessed  int
	QueryComplexity int
}
