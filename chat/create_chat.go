package chat

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// CreateChat creates a chat titled after the number of chats the user has, and selects it.
func (o *Orchestrator) CreateChat(ctx context.Context, userID string) (*store.Record, error) {
	query, err := NewChatListQuery(o.store, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing chats")
	}
	count := query.Count()
	query.Close()

	chat, err := o.store.CreateRecord(ctx, &store.CreateRecordRequest{
		Scope:  store.RegistryPath(userID),
		Schema: schema.Chat,
		Fields: map[string]any{schema.FieldTitle: fmt.Sprintf("Chat %d", count+1)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating chat")
	}
	if err := SelectChat(ctx, o.store, userID, chat.Key()); err != nil {
		return nil, errors.Wrap(err, "selecting chat")
	}
	o.log.Info("created chat", "user", userID, "chat", chat.Key())
	return chat, nil
}
