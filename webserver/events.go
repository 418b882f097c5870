package webserver

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/chat"
	"github.com/goatplatform/edge-chat/store"
)

const statusInterval = 500 * time.Millisecond

// htmlEvent carries the message list rendered with the page's own template.
type htmlEvent struct {
	HTML string `json:"html"`
}

// handleEvents streams the messages of a chat as Server-Sent Events. Every time the live query
// changes, a "messages" event carries a snapshot of the views and an "html" event carries them
// rendered. "status" events carry the transient status.
func (s *Server) handleEvents(c *gin.Context) {
	chatKey := c.Param("chat")
	if _, err := chat.GetChat(c.Request.Context(), s.orchestrator.Store(), s.opts.UserID, chatKey); err != nil {
		s.abort(c, err)
		return
	}
	query, err := chat.NewMessageListQuery(s.orchestrator.Store(), chatKey)
	if err != nil {
		s.abort(c, err)
		return
	}
	defer query.Close()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	if !s.sendMessages(c, query) {
		return
	}
	lastStatus := s.orchestrator.Status(chatKey)
	c.SSEvent("status", lastStatus)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-query.Updates():
			return s.sendMessages(c, query)
		case <-ticker.C:
			status := s.orchestrator.Status(chatKey)
			if status == lastStatus {
				return true
			}
			lastStatus = status
			c.SSEvent("status", status)
		}
		return true
	})
}

func (s *Server) sendMessages(c *gin.Context, query *store.Query) bool {
	views := chat.NewMessageViews(query.Results())
	html, err := s.renderMessages(views)
	if err != nil {
		s.log.Error("rendering messages", "error", err)
		return false
	}
	c.SSEvent("messages", views)
	c.SSEvent("html", &htmlEvent{HTML: html})
	return true
}

func (s *Server) renderMessages(views []*chat.MessageView) (string, error) {
	var buffer bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buffer, "messages", views); err != nil {
		return "", errors.Wrap(err, "executing messages template")
	}
	return buffer.String(), nil
}
