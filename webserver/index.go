package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatplatform/edge-chat/chat"
)

// PageData of the index page.
type PageData struct {
	Title        string
	Chats        []*chat.ChatView
	Selected     *chat.ChatView
	Messages     []*chat.MessageView
	Status       chat.Status
	Models       []string
	DefaultModel string
}

func (s *Server) handleIndex(c *gin.Context) {
	chats, selected, err := s.listChats(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	data := &PageData{
		Title:        "Edge Chat",
		Chats:        chats,
		Models:       s.orchestrator.Models(),
		DefaultModel: s.opts.DefaultModel,
	}
	for _, view := range chats {
		if view.Key == selected {
			data.Selected = view
		}
	}
	if data.Selected != nil {
		data.Title = data.Selected.Title
		if data.Messages, err = s.listMessages(c, selected); err != nil {
			s.abort(c, err)
			return
		}
		data.Status = s.orchestrator.Status(selected)
	}
	c.HTML(http.StatusOK, "base", data)
}
