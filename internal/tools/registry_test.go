package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/tracing"
	"minerva/pkg/errors"
)

func namedStub(name string) *stubTool {
	return &stubTool{
		name:   name,
		action: tracing.ActionQuery,
		execute: func(ctx context.Context, input Input) (*Output, error) {
			return &Output{}, nil
		},
	}
}

func TestRegistry_ResolveAndNames(t *testing.T) {
	registry, err := NewRegistry(namedStub("beta"), namedStub("alpha"))
	require.NoError(t, err)

	tool, err := registry.Resolve("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", tool.Name())

	_, err = registry.Resolve("gamma")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	assert.Equal(t, []string{"alpha", "beta"}, registry.Names())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(namedStub("dup"), namedStub("dup"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	_, err := NewRegistry(namedStub(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
