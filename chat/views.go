package chat

import (
	"time"

	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// ChatView is a read-only snapshot of a chat.
type ChatView struct {
	Key          string    `json:"key"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
	Selected     bool      `json:"selected"`
}

// MessageView is a read-only snapshot of a message.
type MessageView struct {
	Key      string    `json:"key"`
	Path     string    `json:"path"`
	Text     string    `json:"text"`
	DateSent time.Time `json:"dateSent"`
	ModelID  string    `json:"modelId,omitempty"`
	ReplyTo  string    `json:"replyTo,omitempty"`
}

// FromModel returns true for replies generated by a backend.
func (m *MessageView) FromModel() bool { return m.ModelID != "" }

// NewChatViews snapshots chat records, flagging the selected one.
func NewChatViews(records []*store.Record, selected string) []*ChatView {
	views := make([]*ChatView, 0, len(records))
	for _, record := range records {
		views = append(views, &ChatView{
			Key:          record.Key(),
			Title:        record.GetString(schema.FieldTitle),
			LastModified: record.GetTime(schema.FieldLastModified),
			Selected:     record.Key() == selected,
		})
	}
	return views
}

// NewMessageView snapshots a message record.
func NewMessageView(record *store.Record) *MessageView {
	return &MessageView{
		Key:      record.Key(),
		Path:     record.Path(),
		Text:     record.GetString(schema.FieldText),
		DateSent: record.GetTime(schema.FieldDateSent),
		ModelID:  record.GetString(schema.FieldModelID),
		ReplyTo:  record.GetString(schema.FieldReplyTo),
	}
}

// NewMessageViews snapshots message records.
func NewMessageViews(records []*store.Record) []*MessageView {
	views := make([]*MessageView, 0, len(records))
	for _, record := range records {
		views = append(views, NewMessageView(record))
	}
	return views
}
