package tools

import (
	"sort"

	"minerva/pkg/errors"
)

// Registry resolves tools by name. It is populated once at startup and
// read-only afterwards; dispatch is always by name, never by runtime type
// inspection.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry from the given tools
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name() == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "tool with empty name")
		}
		if _, exists := r.tools[t.Name()]; exists {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "duplicate tool %q", t.Name())
		}
		r.tools[t.Name()] = t
	}
	return r, nil
}

// Resolve returns the tool registered under name
func (r *Registry) Resolve(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "unknown tool %q", name)
	}
	return t, nil
}

// Names returns all registered tool names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
