package schema

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterSchemas(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, RegisterSchemas(registry))
	// Registration is init-once but tolerates a second identical pass.
	require.NoError(t, RegisterSchemas(registry))
	assert.Equal(t, []string{"Chat", "Message", "UISettings"}, registry.Namespaces())

	s, ok := registry.Get("Message")
	require.True(t, ok)
	assert.Same(t, Message, s)
}

func TestRegisterIncompatibleVersion(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(Chat))
	err := registry.Register(&Schema{Namespace: "Chat", Version: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompatibleVersion))
}

func TestRegisterInvalidSchema(t *testing.T) {
	for _, tc := range []struct {
		name   string
		schema *Schema
	}{
		{name: "nil", schema: nil},
		{name: "empty namespace", schema: &Schema{Version: 1}},
		{name: "zero version", schema: &Schema{Namespace: "A"}},
		{name: "unknown type", schema: &Schema{Namespace: "A", Version: 1, Fields: map[string]*Field{"x": {Type: "number"}}}},
		{
			name: "required with default",
			schema: &Schema{Namespace: "A", Version: 1, Fields: map[string]*Field{
				"x": {Type: FieldTypeString, Required: true, Default: func(time.Time) any { return "" }},
			}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, NewRegistry().Register(tc.schema))
		})
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("defaults", func(t *testing.T) {
		fields, err := Chat.Build(nil, now)
		require.NoError(t, err)
		assert.Equal(t, DefaultChatTitle, fields[FieldTitle])
		assert.Equal(t, now, fields[FieldLastModified])
	})

	t.Run("explicit values win", func(t *testing.T) {
		fields, err := Chat.Build(map[string]any{FieldTitle: "Chat 1"}, now)
		require.NoError(t, err)
		assert.Equal(t, "Chat 1", fields[FieldTitle])
	})

	t.Run("required field", func(t *testing.T) {
		_, err := Message.Build(map[string]any{FieldModelID: "Dummy"}, now)
		assert.Error(t, err)
	})

	t.Run("optional fields stay unset", func(t *testing.T) {
		fields, err := Message.Build(map[string]any{FieldText: "Hello"}, now)
		require.NoError(t, err)
		assert.NotContains(t, fields, FieldModelID)
		assert.NotContains(t, fields, FieldReplyTo)
		assert.Equal(t, now, fields[FieldDateSent])
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Message.Build(map[string]any{FieldText: "Hello", "color": "red"}, now)
		assert.Error(t, err)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := Message.Build(map[string]any{FieldText: "Hello", FieldDateSent: "yesterday"}, now)
		assert.Error(t, err)
	})
}
