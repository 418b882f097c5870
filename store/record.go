package store

import (
	"context"
	"time"

	"github.com/goatplatform/edge-chat/internal/schema"
)

// Record is a handle on a stored record. Reads always observe the latest written state.
type Record struct {
	store  *Store
	path   string
	scope  string
	key    string
	schema *schema.Schema
	seq    int64
}

func (s *Store) newRecord(e *entry, sch *schema.Schema) *Record {
	return &Record{
		store:  s,
		path:   e.path,
		scope:  e.scope,
		key:    e.key,
		schema: sch,
		seq:    e.seq,
	}
}

// Path of the record: <scope>/<key>.
func (r *Record) Path() string { return r.path }

// Scope the record lives in.
func (r *Record) Scope() string { return r.scope }

// Key of the record within its scope.
func (r *Record) Key() string { return r.key }

// Schema of the record.
func (r *Record) Schema() *schema.Schema { return r.schema }

// Seq is the creation sequence number of the record; later records have larger values.
func (r *Record) Seq() int64 { return r.seq }

// Get the value of a field, nil when unset.
func (r *Record) Get(field string) any {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.entries[r.path]
	if !ok {
		return nil
	}
	return e.fields[field]
}

// Has returns true if the field is set.
func (r *Record) Has(field string) bool {
	return r.Get(field) != nil
}

// GetString returns a string field, "" when unset.
func (r *Record) GetString(field string) string {
	value, _ := r.Get(field).(string)
	return value
}

// GetTime returns a date field, the zero time when unset.
func (r *Record) GetTime(field string) time.Time {
	value, _ := r.Get(field).(time.Time)
	return value
}

// Set a field.
func (r *Record) Set(ctx context.Context, field string, value any) error {
	return r.store.updateField(ctx, r.path, r.schema, field, value, false)
}

// Touch sets a date field to the current time of the store's clock, unless it already holds a later time.
func (r *Record) Touch(ctx context.Context, field string) error {
	return r.store.touchField(ctx, r.path, r.schema, field)
}

// Delete a field. Required fields cannot be deleted.
func (r *Record) Delete(ctx context.Context, field string) error {
	return r.store.updateField(ctx, r.path, r.schema, field, nil, true)
}
