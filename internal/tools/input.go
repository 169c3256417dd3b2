package tools

import (
	"encoding/json"

	"github.com/google/uuid"

	"minerva/pkg/errors"
)

// Input is a tool's normalized input payload
type Input map[string]interface{}

// ParseInput normalizes the raw payload handed over by the orchestrator.
// The boundary accepts a JSON document (string or bytes) or an
// already-parsed map; anything else fails fast as invalid input so type
// checks never leak into business logic.
func ParseInput(raw interface{}) (Input, error) {
	switch v := raw.(type) {
	case nil:
		return Input{}, nil
	case Input:
		return v, nil
	case map[string]interface{}:
		return Input(v), nil
	case string:
		return parseJSONInput([]byte(v))
	case []byte:
		return parseJSONInput(v)
	case json.RawMessage:
		return parseJSONInput(v)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported input type %T", raw)
	}
}

func parseJSONInput(data []byte) (Input, error) {
	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "input is not a valid JSON object")
	}
	if input == nil {
		input = Input{}
	}
	return input, nil
}

// String returns a required string field
func (in Input) String(key string) (string, error) {
	v, ok := in[key]
	if !ok {
		return "", errors.NewValidationError(key, "is required", nil)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.NewValidationError(key, "must be a non-empty string", v)
	}
	return s, nil
}

// OptionalString returns a string field or the empty string when absent
func (in Input) OptionalString(key string) string {
	s, _ := in[key].(string)
	return s
}

// UUID returns a required UUID field
func (in Input) UUID(key string) (uuid.UUID, error) {
	s, err := in.String(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.NewValidationError(key, "must be a valid UUID", s)
	}
	return id, nil
}

// OrganizationID returns the mandatory tenant identifier. A missing tenant
// id is an input-validation failure, not a metrics-recording concern.
func (in Input) OrganizationID() (uuid.UUID, error) {
	return in.UUID("organization_id")
}

// StringSlice returns an optional list-of-strings field. JSON decoding
// yields []interface{}, so both shapes are accepted.
func (in Input) StringSlice(key string) ([]string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, errors.NewValidationError(key, "must be a list of strings", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.NewValidationError(key, "must be a list of strings", v)
	}
}

// Int returns an optional integer field with a default. JSON numbers decode
// as float64.
func (in Input) Int(key string, def int) (int, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, errors.NewValidationError(key, "must be a number", v)
	}
}
