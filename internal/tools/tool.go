// Package tools assembles the fixed capability set the reasoning loop may
// invoke: list tables, describe schema, run a query, validate a query, and
// classify a database error.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// Tool is a named, described callable. Every tool takes a free-text input and
// returns a free-text observation; tools never return errors, they describe
// failures in their output instead.
type Tool struct {
	Name        string
	Description string
	Func        func(ctx context.Context, input string) string
}

// Registry holds tools in registration order and resolves them by name.
type Registry struct {
	ordered []Tool
	byName  map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	registry := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if _, exists := registry.byName[tool.Name]; exists {
			continue
		}
		registry.ordered = append(registry.ordered, tool)
		registry.byName[tool.Name] = tool
	}
	return registry
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.byName[strings.TrimSpace(name)]
	return tool, ok
}

func (r *Registry) Tools() []Tool {
	return r.ordered
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ordered))
	for _, tool := range r.ordered {
		names = append(names, tool.Name)
	}
	return names
}

// Catalog renders the model-facing tool listing used in the system prompt.
func (r *Registry) Catalog() string {
	var out strings.Builder
	for i, tool := range r.ordered {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, "%s: %s", tool.Name, tool.Description)
	}
	return out.String()
}
