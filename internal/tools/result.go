package tools

import (
	"context"

	"minerva/pkg/errors"
)

// Error type identifiers visible to the orchestrator
const (
	ErrorTypeInvalidInput = "InvalidInput"
	ErrorTypeDownstream   = "DownstreamFailure"
	ErrorTypeNotFound     = "NotFound"
	ErrorTypeCancelled    = "Cancelled"
	ErrorTypeInternal     = "Internal"
)

// ResultError is the in-band error payload of a failed invocation
type ResultError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Result is the externally visible outcome of a tool invocation. It is
// always JSON-serializable and always returned, even on failure: errors
// cross the tool/orchestrator boundary in-band, never as panics.
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Error   *ResultError           `json:"error,omitempty"`

	// Confidence of the result in [0,1]; 0 whenever Success is false
	Confidence float64 `json:"confidence"`
}

// classifyError maps an execution error onto the orchestrator-visible
// taxonomy. Context errors win so a cancelled downstream call is reported
// as Cancelled rather than as a downstream failure.
func classifyError(ctx context.Context, err error) *ResultError {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errors.ErrCancelled):
		return &ResultError{
			Type:    ErrorTypeCancelled,
			Message: "the operation was cancelled",
			Details: err.Error(),
		}
	case errors.Is(err, errors.ErrInvalidInput):
		return &ResultError{
			Type:    ErrorTypeInvalidInput,
			Message: "the request is missing or has malformed fields",
			Details: err.Error(),
		}
	case errors.Is(err, errors.ErrNotFound):
		return &ResultError{
			Type:    ErrorTypeNotFound,
			Message: "the referenced entity does not exist",
			Details: err.Error(),
		}
	case errors.Is(err, errors.ErrTicketClosed), errors.Is(err, errors.ErrAlreadyAssigned),
		errors.Is(err, errors.ErrAgentAtCapacity), errors.Is(err, errors.ErrAgentInactive):
		return &ResultError{
			Type:    ErrorTypeInvalidInput,
			Message: "the requested operation is not applicable",
			Details: err.Error(),
		}
	case errors.Is(err, errors.ErrDownstream), errors.Is(err, errors.ErrUnavailable),
		errors.Is(err, errors.ErrTimeout), errors.Is(err, errors.ErrRateLimitExceeded),
		errors.Is(err, errors.ErrEmptyCompletion):
		return &ResultError{
			Type:    ErrorTypeDownstream,
			Message: "a downstream service failed",
			Details: err.Error(),
		}
	default:
		return &ResultError{
			Type:    ErrorTypeInternal,
			Message: "an internal error occurred",
			Details: err.Error(),
		}
	}
}
