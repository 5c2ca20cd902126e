package property

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// Registry maps lowercase property names to their specifications. A
// Registry is immutable once constructed and safe for concurrent use.
type Registry struct {
	specs map[string]*Specification
	order []string
}

// NewRegistry compiles the definitions, in order, into a registry.
// Returns an error if a definition is invalid or a name repeats.
func NewRegistry(defs ...Definition) (*Registry, error) {
	registry := &Registry{specs: make(map[string]*Specification, len(defs))}
	for _, def := range defs {
		spec, err := compile(def)
		if err != nil {
			return nil, err
		}
		if _, exists := registry.specs[spec.name]; exists {
			return nil, fmt.Errorf("specification %q already registered", spec.name)
		}
		registry.specs[spec.name] = spec
		registry.order = append(registry.order, spec.name)
	}
	return registry, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the process-wide registry of RFC 6350 properties
// (plus the legacy AGENT). It is built on first use.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		registry, err := NewRegistry(StandardDefinitions()...)
		if err != nil {
			panic(fmt.Sprintf("property: invalid built-in specification: %v", err))
		}
		defaultRegistry = registry
	})
	return defaultRegistry
}

// Get returns the specification for name (case-insensitive).
func (r *Registry) Get(name string) (*Specification, bool) {
	spec, ok := r.specs[strings.ToLower(name)]
	return spec, ok
}

// IsSpecified reports whether name is registered.
func (r *Registry) IsSpecified(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Builder returns a fresh builder for name, or an ErrUndefinedProperty error.
func (r *Registry) Builder(name string) (Builder, error) {
	spec, ok := r.Get(name)
	if !ok {
		return nil, vcarderr.UndefinedProperty(strings.ToLower(name))
	}
	return spec.NewBuilder(), nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Rank returns the registration position of name, or -1 when it is not
// registered. Cards emit properties in rank order.
func (r *Registry) Rank(name string) int {
	return slices.Index(r.order, strings.ToLower(name))
}

// Len returns the number of registered specifications.
func (r *Registry) Len() int {
	return len(r.order)
}
