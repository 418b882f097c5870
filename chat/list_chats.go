package chat

import (
	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// ByLastModifiedDesc sorts the most recently modified chats first.
func ByLastModifiedDesc(left, right *store.Record) int {
	return right.GetTime(schema.FieldLastModified).Compare(left.GetTime(schema.FieldLastModified))
}

// NewChatListQuery opens a live query over the user's chats, most recently modified first.
func NewChatListQuery(s *store.Store, userID string) (*store.Query, error) {
	return s.Query(store.QueryOpts{
		Schema:         schema.Chat,
		Source:         store.RegistryPath(userID),
		SortDescriptor: ByLastModifiedDesc,
	})
}
