package schema

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrIncompatibleVersion is returned when a namespace is registered twice with different versions.
var ErrIncompatibleVersion = errors.New("namespace already registered with a different version")

// Registry of schemas keyed by namespace.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry instantiates and returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: map[string]*Schema{}}
}

// Register a schema. Registering the same namespace and version twice is a no-op.
func (r *Registry) Register(s *Schema) error {
	if s == nil {
		return errors.New("schema cannot be nil")
	}
	if err := s.Validate(); err != nil {
		return errors.Wrap(err, "validating schema")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.schemas[s.Namespace]; ok {
		if existing.Version != s.Version {
			return errors.Wrapf(ErrIncompatibleVersion, "%s: v%d registered, got v%d", s.Namespace, existing.Version, s.Version)
		}
		return nil
	}
	r.schemas[s.Namespace] = s
	return nil
}

// Get the schema bound to a namespace.
func (r *Registry) Get(namespace string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[namespace]
	return s, ok
}

// Namespaces returns the registered namespaces, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	namespaces := make([]string, 0, len(r.schemas))
	for namespace := range r.schemas {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}
