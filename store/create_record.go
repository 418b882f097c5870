package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
)

// CreateRecordRequest represents a request to create a new record.
type CreateRecordRequest struct {
	// Scope to create the record in, e.g. RegistryPath(userID).
	Scope string
	// Key of the record. A random one is generated if empty.
	Key string
	// Schema of the record.
	Schema *schema.Schema
	// Initial fields. Omitted fields get their schema defaults.
	Fields map[string]any
}

// CreateRecord creates a record and notifies the live queries of its scope.
func (s *Store) CreateRecord(ctx context.Context, req *CreateRecordRequest) (*Record, error) {
	if req.Scope == "" {
		return nil, errors.New("scope cannot be empty")
	}
	sch, err := s.schemaFor(req.Schema)
	if err != nil {
		return nil, err
	}
	key := req.Key
	if key == "" {
		key = uuid.New().String()
	}
	path := ItemPath(req.Scope, key)

	s.mu.Lock()
	if _, ok := s.entries[path]; ok {
		s.mu.Unlock()
		return nil, errors.Wrap(ErrAlreadyExists, path)
	}
	now := s.now()
	fields, err := sch.Build(req.Fields, now)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "building fields")
	}
	e := &entry{
		path:              path,
		scope:             req.Scope,
		key:               key,
		namespace:         sch.Namespace,
		version:           sch.Version,
		fields:            fields,
		seq:               s.seq + 1,
		creationTimestamp: now.UnixMicro(),
		updateTimestamp:   now.UnixMicro(),
	}
	row, err := encodeEntry(sch, e)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "encoding record")
	}
	if err := s.db.insert(ctx, row); err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "inserting record")
	}
	s.seq = e.seq
	s.entries[path] = e
	s.mu.Unlock()

	s.notify(e.scope, e.namespace)
	return s.newRecord(e, sch), nil
}

// GetOrCreateRecord returns the record at <scope>/<key>, creating it with the given fields if absent.
func (s *Store) GetOrCreateRecord(ctx context.Context, req *CreateRecordRequest) (*Record, error) {
	if req.Key == "" {
		return nil, errors.New("key cannot be empty")
	}
	record, err := s.GetRecord(ctx, ItemPath(req.Scope, req.Key))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	record, err = s.CreateRecord(ctx, req)
	if errors.Is(err, ErrAlreadyExists) {
		return s.GetRecord(ctx, ItemPath(req.Scope, req.Key))
	}
	return record, err
}
