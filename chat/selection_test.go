package chat

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

func TestCreateChatTitlesAndSelects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	first := f.createChat(t)
	assert.Equal(t, "Chat 1", first.GetString(schema.FieldTitle))
	selected, err := SelectedChat(ctx, f.store, userID)
	require.NoError(t, err)
	assert.Equal(t, first.Key(), selected)

	second := f.createChat(t)
	assert.Equal(t, "Chat 2", second.GetString(schema.FieldTitle))
	selected, err = SelectedChat(ctx, f.store, userID)
	require.NoError(t, err)
	assert.Equal(t, second.Key(), selected)
}

func TestSettingsIsASingleton(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)

	first, err := Settings(ctx, f.store, userID)
	require.NoError(t, err)
	second, err := Settings(ctx, f.store, userID)
	require.NoError(t, err)
	assert.Equal(t, first.Path(), second.Path())
	assert.Equal(t, "/user/alice/UISettings", first.Path())
	assert.False(t, first.Has(schema.FieldSelectedChat))

	query, err := f.store.Query(store.QueryOpts{Schema: schema.UISettings, Source: store.RegistryPath(userID)})
	require.NoError(t, err)
	defer query.Close()
	assert.Equal(t, 1, query.Count())
}

func TestToggleSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	a := f.createChat(t)
	b := f.createChat(t)

	selected, err := ToggleSelection(ctx, f.store, userID, a.Key())
	require.NoError(t, err)
	assert.Equal(t, a.Key(), selected)

	// Toggling the selected chat clears the selection.
	selected, err = ToggleSelection(ctx, f.store, userID, a.Key())
	require.NoError(t, err)
	assert.Empty(t, selected)
	selected, err = SelectedChat(ctx, f.store, userID)
	require.NoError(t, err)
	assert.Empty(t, selected)

	// Toggling from nothing then to another chat.
	_, err = ToggleSelection(ctx, f.store, userID, a.Key())
	require.NoError(t, err)
	selected, err = ToggleSelection(ctx, f.store, userID, b.Key())
	require.NoError(t, err)
	assert.Equal(t, b.Key(), selected)

	_, err = ToggleSelection(ctx, f.store, userID, "missing")
	assert.True(t, errors.Is(err, ErrChatNotFound))
	selected, err = SelectedChat(ctx, f.store, userID)
	require.NoError(t, err)
	assert.Equal(t, b.Key(), selected)
}

func TestGetChatRejectsSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	_, err := Settings(ctx, f.store, userID)
	require.NoError(t, err)
	_, err = GetChat(ctx, f.store, userID, SettingsKey)
	assert.True(t, errors.Is(err, ErrChatNotFound))
}

func TestMessageListOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	chat := f.createChat(t)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	create := func(text string, dateSent time.Time) {
		_, err := f.store.CreateRecord(ctx, &store.CreateRecordRequest{
			Scope:  store.DataPath(chat.Key()),
			Schema: schema.Message,
			Fields: map[string]any{schema.FieldText: text, schema.FieldDateSent: dateSent},
		})
		require.NoError(t, err)
	}
	create("first at t0", t0)
	create("second at t0", t0)
	create("earlier", t0.Add(-time.Minute))

	query, err := NewMessageListQuery(f.store, chat.Key())
	require.NoError(t, err)
	defer query.Close()
	var texts []string
	for _, message := range NewMessageViews(query.Results()) {
		texts = append(texts, message.Text)
	}
	assert.Equal(t, []string{"earlier", "first at t0", "second at t0"}, texts)
}

func TestChatListIsLive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	query, err := NewChatListQuery(f.store, userID)
	require.NoError(t, err)
	defer query.Close()
	assert.Zero(t, query.Count())

	first := f.createChat(t)
	second := f.createChat(t)
	select {
	case <-query.Updates():
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
	require.Equal(t, 2, query.Count())
	assert.Equal(t, second.Key(), query.Results()[0].Key())

	_, err = f.orchestrator.Send(ctx, &SendRequest{UserID: userID, ChatKey: first.Key(), Prompt: "Hi", Model: "Dummy"})
	require.NoError(t, err)
	assert.Equal(t, first.Key(), query.Results()[0].Key())
}

func TestChatListOrderIgnoresCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	t3 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t3.Add(time.Hour)
	t1 := t2.Add(time.Hour)

	var keys []string
	for _, lastModified := range []time.Time{t2, t1, t3} {
		chat := f.createChat(t)
		require.NoError(t, chat.Set(ctx, schema.FieldLastModified, lastModified))
		keys = append(keys, chat.Key())
	}

	query, err := NewChatListQuery(f.store, userID)
	require.NoError(t, err)
	defer query.Close()
	chats := NewChatViews(query.Results(), "")
	require.Len(t, chats, 3)
	assert.Equal(t, []string{keys[1], keys[0], keys[2]}, []string{chats[0].Key, chats[1].Key, chats[2].Key})
	assert.Equal(t, t1, chats[0].LastModified)
	assert.Equal(t, t3, chats[2].LastModified)
}
