package ib

import (
	"sort"
)

// validateVars is the shared constructor check: non-empty list, no
// duplicate names within the strategy.
func validateVars(strategy string, vars []Variable) error {
	if len(vars) == 0 {
		return &ConfigError{Strategy: strategy, Wrapped: ErrNoVariables}
	}
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if seen[v.Name] {
			return &ConfigError{Strategy: strategy, Variable: v.Name, Wrapped: ErrDuplicateVariable}
		}
		seen[v.Name] = true
	}
	return nil
}

// Registry is the immutable variable-to-strategy mapping built at
// setup. Each registered variable belongs to exactly one strategy;
// cross-strategy assignment is a configuration error, never silently
// resolved by precedence.
type Registry struct {
	byName   map[string]Variable
	strategy map[string]string
	names    []string
}

// NewRegistry builds the registry from the configured strategies,
// failing fast on duplicate assignment.
func NewRegistry(strategies []Strategy) (*Registry, error) {
	r := &Registry{
		byName:   make(map[string]Variable),
		strategy: make(map[string]string),
	}
	for _, s := range strategies {
		for _, v := range s.Variables() {
			if _, ok := r.strategy[v.Name]; ok {
				return nil, &ConfigError{Strategy: s.Name(), Variable: v.Name, Wrapped: ErrDuplicateVariable}
			}
			r.byName[v.Name] = v
			r.strategy[v.Name] = s.Name()
			r.names = append(r.names, v.Name)
		}
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the resolved configuration for a variable.
func (r *Registry) Lookup(name string) (Variable, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// StrategyFor returns the name of the strategy a variable is assigned
// to.
func (r *Registry) StrategyFor(name string) (string, bool) {
	s, ok := r.strategy[name]
	return s, ok
}

// Names returns all registered variable names, sorted.
func (r *Registry) Names() []string { return r.names }

func (r *Registry) Len() int { return len(r.byName) }
