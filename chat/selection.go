package chat

import (
	"context"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// SettingsKey is the key of the UISettings singleton in a user's registry scope.
const SettingsKey = "UISettings"

// GetChat returns the chat with the given key, owned by the user.
func GetChat(ctx context.Context, s *store.Store, userID, chatKey string) (*store.Record, error) {
	if chatKey == "" {
		return nil, errors.Wrap(ErrChatNotFound, "empty chat key")
	}
	record, err := s.GetRecord(ctx, store.ItemPath(store.RegistryPath(userID), chatKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(ErrChatNotFound, chatKey)
	}
	if err != nil {
		return nil, err
	}
	if record.Schema().Namespace != schema.Chat.Namespace {
		return nil, errors.Wrap(ErrChatNotFound, chatKey)
	}
	return record, nil
}

// Settings returns the user's UISettings, creating it with defaults on first access.
func Settings(ctx context.Context, s *store.Store, userID string) (*store.Record, error) {
	record, err := s.GetOrCreateRecord(ctx, &store.CreateRecordRequest{
		Scope:  store.RegistryPath(userID),
		Key:    SettingsKey,
		Schema: schema.UISettings,
	})
	if err != nil {
		return nil, errors.Wrap(err, "getting settings")
	}
	return record, nil
}

// SelectedChat returns the key of the user's selected chat, "" when none is.
func SelectedChat(ctx context.Context, s *store.Store, userID string) (string, error) {
	settings, err := Settings(ctx, s, userID)
	if err != nil {
		return "", err
	}
	return settings.GetString(schema.FieldSelectedChat), nil
}

// SelectChat sets the user's selected chat.
func SelectChat(ctx context.Context, s *store.Store, userID, chatKey string) error {
	if _, err := GetChat(ctx, s, userID, chatKey); err != nil {
		return err
	}
	settings, err := Settings(ctx, s, userID)
	if err != nil {
		return err
	}
	return settings.Set(ctx, schema.FieldSelectedChat, chatKey)
}

// ToggleSelection selects the chat, or clears the selection when the chat is already selected.
// It returns the resulting selection.
func ToggleSelection(ctx context.Context, s *store.Store, userID, chatKey string) (string, error) {
	if _, err := GetChat(ctx, s, userID, chatKey); err != nil {
		return "", err
	}
	settings, err := Settings(ctx, s, userID)
	if err != nil {
		return "", err
	}
	if settings.GetString(schema.FieldSelectedChat) == chatKey {
		if err := settings.Delete(ctx, schema.FieldSelectedChat); err != nil {
			return "", errors.Wrap(err, "clearing selection")
		}
		return "", nil
	}
	if err := settings.Set(ctx, schema.FieldSelectedChat, chatKey); err != nil {
		return "", errors.Wrap(err, "setting selection")
	}
	return chatKey, nil
}
