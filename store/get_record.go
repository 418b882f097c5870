package store

import (
	"context"

	"github.com/pkg/errors"
)

// GetRecord returns a handle on the record at the given path.
func (s *Store) GetRecord(ctx context.Context, path string) (*Record, error) {
	s.mu.RLock()
	e, ok := s.entries[path]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrNotFound, path)
	}
	sch, ok := s.registry.Get(e.namespace)
	if !ok {
		return nil, errors.Errorf("schema %s is not registered", e.namespace)
	}
	return s.newRecord(e, sch), nil
}
