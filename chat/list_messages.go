package chat

import (
	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// ByDateSentAsc sorts messages oldest first. Messages sent at the same instant keep their creation order.
func ByDateSentAsc(left, right *store.Record) int {
	return left.GetTime(schema.FieldDateSent).Compare(right.GetTime(schema.FieldDateSent))
}

// NewMessageListQuery opens a live query over the messages of a chat, in display order.
func NewMessageListQuery(s *store.Store, chatKey string) (*store.Query, error) {
	return s.Query(store.QueryOpts{
		Schema:         schema.Message,
		Source:         store.DataPath(chatKey),
		SortDescriptor: ByDateSentAsc,
	})
}
