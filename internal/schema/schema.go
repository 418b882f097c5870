package schema

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
)

// FieldType is the type of a field value.
type FieldType string

const (
	// FieldTypeString holds a Go string.
	FieldTypeString FieldType = "string"
	// FieldTypeDate holds a time.Time.
	FieldTypeDate FieldType = "date"
)

// DefaultFunc produces the value of an omitted field. It is invoked once, at record creation.
type DefaultFunc func(now time.Time) any

// Field describes a single field of a schema.
type Field struct {
	Type     FieldType
	Required bool
	Default  DefaultFunc
}

// Schema describes the shape of a record kind.
type Schema struct {
	// Namespace of the record kind, e.g. "Chat".
	Namespace string
	// Version of the shape.
	Version int
	// Fields keyed by name.
	Fields map[string]*Field
}

// Validate the schema descriptor itself.
func (s *Schema) Validate() error {
	if s.Namespace == "" {
		return errors.New("namespace cannot be empty")
	}
	if s.Version <= 0 {
		return errors.Errorf("%s: version must be positive, got %d", s.Namespace, s.Version)
	}
	for name, field := range s.Fields {
		if name == "" {
			return errors.Errorf("%s: field name cannot be empty", s.Namespace)
		}
		if field == nil {
			return errors.Errorf("%s.%s: field cannot be nil", s.Namespace, name)
		}
		switch field.Type {
		case FieldTypeString, FieldTypeDate:
		default:
			return errors.Errorf("%s.%s: unknown field type (%s)", s.Namespace, name, field.Type)
		}
		if field.Required && field.Default != nil {
			return errors.Errorf("%s.%s: required field cannot have a default", s.Namespace, name)
		}
	}
	return nil
}

// FieldNames returns the sorted field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckValue verifies that value may be stored in the given field.
func (s *Schema) CheckValue(name string, value any) error {
	field, ok := s.Fields[name]
	if !ok {
		return errors.Errorf("%s: unknown field (%s)", s.Namespace, name)
	}
	switch field.Type {
	case FieldTypeString:
		if _, ok := value.(string); !ok {
			return errors.Errorf("%s.%s: expected string, got %T", s.Namespace, name, value)
		}
	case FieldTypeDate:
		if _, ok := value.(time.Time); !ok {
			return errors.Errorf("%s.%s: expected time.Time, got %T", s.Namespace, name, value)
		}
	}
	return nil
}

// Build the complete field set of a new record: initial values are type checked, defaults are applied
// to omitted fields and required fields are enforced.
func (s *Schema) Build(initial map[string]any, now time.Time) (map[string]any, error) {
	known := strset.New(s.FieldNames()...)
	fields := make(map[string]any, len(s.Fields))
	for name, value := range initial {
		if !known.Has(name) {
			return nil, errors.Errorf("%s: unknown field (%s)", s.Namespace, name)
		}
		if value == nil {
			continue
		}
		if err := s.CheckValue(name, value); err != nil {
			return nil, err
		}
		fields[name] = value
	}
	for name, field := range s.Fields {
		if _, ok := fields[name]; ok {
			continue
		}
		if field.Required {
			return nil, errors.Errorf("%s.%s: required field is missing", s.Namespace, name)
		}
		if field.Default != nil {
			fields[name] = field.Default(now)
		}
	}
	return fields, nil
}
