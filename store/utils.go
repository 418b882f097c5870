package store

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
)

// database persists rows. Implementations need not cache anything.
type database interface {
	migrate(ctx context.Context) error
	insert(ctx context.Context, row *row) error
	update(ctx context.Context, row *row) error
	load(ctx context.Context) ([]*row, error)
	close() error
}

// row is the persisted form of a record.
type row struct {
	Path              string
	Scope             string
	Key               string
	Namespace         string
	Version           int
	Fields            string
	Seq               int64
	CreationTimestamp int64
	UpdateTimestamp   int64
}

// encodeEntry converts an entry to a row. Dates are stored as UnixMicro.
func encodeEntry(sch *schema.Schema, e *entry) (*row, error) {
	encoded := make(map[string]any, len(e.fields))
	for name, value := range e.fields {
		field, ok := sch.Fields[name]
		if !ok {
			return nil, errors.Errorf("%s: unknown field (%s)", sch.Namespace, name)
		}
		switch field.Type {
		case schema.FieldTypeDate:
			t, ok := value.(time.Time)
			if !ok {
				return nil, errors.Errorf("%s.%s: expected time.Time, got %T", sch.Namespace, name, value)
			}
			encoded[name] = t.UnixMicro()
		default:
			encoded[name] = value
		}
	}
	fieldsJSON, err := json.Marshal(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling fields")
	}
	return &row{
		Path:              e.path,
		Scope:             e.scope,
		Key:               e.key,
		Namespace:         e.namespace,
		Version:           e.version,
		Fields:            string(fieldsJSON),
		Seq:               e.seq,
		CreationTimestamp: e.creationTimestamp,
		UpdateTimestamp:   e.updateTimestamp,
	}, nil
}

// decodeRow converts a row back to an entry.
func decodeRow(sch *schema.Schema, r *row) (*entry, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(r.Fields)))
	decoder.UseNumber()
	raw := map[string]any{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "unmarshaling fields")
	}
	fields := make(map[string]any, len(raw))
	for name, value := range raw {
		field, ok := sch.Fields[name]
		if !ok {
			// Fields dropped from the schema are ignored.
			continue
		}
		switch field.Type {
		case schema.FieldTypeDate:
			number, ok := value.(json.Number)
			if !ok {
				return nil, errors.Errorf("%s.%s: expected a number, got %T", sch.Namespace, name, value)
			}
			micros, err := number.Int64()
			if err != nil {
				return nil, errors.Wrapf(err, "%s.%s: parsing timestamp", sch.Namespace, name)
			}
			fields[name] = time.UnixMicro(micros)
		case schema.FieldTypeString:
			s, ok := value.(string)
			if !ok {
				return nil, errors.Errorf("%s.%s: expected a string, got %T", sch.Namespace, name, value)
			}
			fields[name] = s
		}
	}
	return &entry{
		path:              r.Path,
		scope:             r.Scope,
		key:               r.Key,
		namespace:         r.Namespace,
		version:           r.Version,
		fields:            fields,
		seq:               r.Seq,
		creationTimestamp: r.CreationTimestamp,
		updateTimestamp:   r.UpdateTimestamp,
	}, nil
}
