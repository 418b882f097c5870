package llm

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Registry is the fixed set of backends available to a process, keyed by ID.
type Registry struct {
	backends map[string]Backend
	ids      []string
}

// NewRegistry instantiates and returns a registry. Duplicate IDs are rejected.
func NewRegistry(backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend, len(backends))}
	for _, backend := range backends {
		id := backend.ID()
		if id == "" {
			return nil, errors.New("backend id cannot be empty")
		}
		if _, ok := r.backends[id]; ok {
			return nil, errors.Errorf("duplicate backend (%s)", id)
		}
		r.backends[id] = backend
		r.ids = append(r.ids, id)
	}
	return r, nil
}

// Get a backend by ID.
func (r *Registry) Get(id string) (Backend, error) {
	backend, ok := r.backends[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%s", id)
	}
	return backend, nil
}

// IDs of the backends, in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.ids))
	copy(ids, r.ids)
	return ids
}

// EnsureReady initializes every backend that needs it. Failures do not stop the other backends
// from initializing; they are returned keyed by backend ID. A backend that failed stays not ready.
func (r *Registry) EnsureReady(ctx context.Context) map[string]error {
	failures := map[string]error{}
	for _, id := range r.ids {
		initializer, ok := r.backends[id].(Initializer)
		if !ok {
			continue
		}
		if err := initializer.EnsureReady(ctx); err != nil {
			failures[id] = err
		}
	}
	return failures
}

// Close every backend holding resources.
func (r *Registry) Close() error {
	var firstErr error
	for _, id := range r.ids {
		closer, ok := r.backends[id].(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "closing %s", id)
		}
	}
	return firstErr
}
