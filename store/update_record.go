package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
)

// updateField sets or deletes a single field of a record. The write is last-write-wins.
func (s *Store) updateField(ctx context.Context, path string, sch *schema.Schema, name string, value any, remove bool) error {
	if remove {
		field, ok := sch.Fields[name]
		if !ok {
			return errors.Errorf("%s: unknown field (%s)", sch.Namespace, name)
		}
		if field.Required {
			return errors.Errorf("%s.%s: cannot delete a required field", sch.Namespace, name)
		}
	} else if err := sch.CheckValue(name, value); err != nil {
		return err
	}

	return s.update(ctx, path, sch, func(fields map[string]any, _ time.Time) bool {
		if remove {
			delete(fields, name)
		} else {
			fields[name] = value
		}
		return true
	})
}

// touchField sets a date field to the store clock, read under the write lock.
// A value already later than the clock is kept.
func (s *Store) touchField(ctx context.Context, path string, sch *schema.Schema, name string) error {
	field, ok := sch.Fields[name]
	if !ok {
		return errors.Errorf("%s: unknown field (%s)", sch.Namespace, name)
	}
	if field.Type != schema.FieldTypeDate {
		return errors.Errorf("%s.%s: cannot touch a %s field", sch.Namespace, name, field.Type)
	}
	return s.update(ctx, path, sch, func(fields map[string]any, now time.Time) bool {
		if current, ok := fields[name].(time.Time); ok && !now.After(current) {
			return false
		}
		fields[name] = now
		return true
	})
}

// update applies mutate to a copy of the record's fields and writes it through.
// Nothing is written when mutate returns false.
func (s *Store) update(ctx context.Context, path string, sch *schema.Schema, mutate func(fields map[string]any, now time.Time) bool) error {
	s.mu.Lock()
	existing, ok := s.entries[path]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrNotFound, path)
	}
	now := s.now()
	updated := existing.clone()
	if !mutate(updated.fields, now) {
		s.mu.Unlock()
		return nil
	}
	updated.updateTimestamp = now.UnixMicro()

	row, err := encodeEntry(sch, updated)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "encoding record")
	}
	if err := s.db.update(ctx, row); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "updating record")
	}
	s.entries[path] = updated
	s.mu.Unlock()

	s.notify(updated.scope, updated.namespace)
	return nil
}
