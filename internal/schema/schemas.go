package schema

import (
	"time"

	"github.com/pkg/errors"
)

// Field names.
const (
	FieldTitle        = "title"
	FieldLastModified = "lastModified"
	FieldText         = "text"
	FieldDateSent     = "dateSent"
	FieldModelID      = "modelId"
	FieldReplyTo      = "replyTo"
	FieldSelectedChat = "selectedChat"
)

// DefaultChatTitle is given to chats created without a title.
const DefaultChatTitle = "Untitled Chat"

func creationTime(now time.Time) any { return now }

// Chat is a conversation thread.
var Chat = &Schema{
	Namespace: "Chat",
	Version:   1,
	Fields: map[string]*Field{
		FieldTitle:        {Type: FieldTypeString, Default: func(time.Time) any { return DefaultChatTitle }},
		FieldLastModified: {Type: FieldTypeDate, Default: creationTime},
	},
}

// Message is one turn of a chat. Model replies carry modelId and replyTo.
var Message = &Schema{
	Namespace: "Message",
	Version:   1,
	Fields: map[string]*Field{
		FieldText:     {Type: FieldTypeString, Required: true},
		FieldDateSent: {Type: FieldTypeDate, Default: creationTime},
		FieldModelID:  {Type: FieldTypeString},
		FieldReplyTo:  {Type: FieldTypeString},
	},
}

// UISettings is the per-user singleton pointing at the displayed chat.
var UISettings = &Schema{
	Namespace: "UISettings",
	Version:   1,
	Fields: map[string]*Field{
		FieldSelectedChat: {Type: FieldTypeString},
	},
}

// RegisterSchemas registers every schema of the application.
// Both the server and the client call it so they agree on the same shapes.
func RegisterSchemas(r *Registry) error {
	for _, s := range []*Schema{Chat, Message, UISettings} {
		if err := r.Register(s); err != nil {
			return errors.Wrapf(err, "registering %s", s.Namespace)
		}
	}
	return nil
}
