package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/chat"
	"github.com/goatplatform/edge-chat/internal/llm"
	"github.com/goatplatform/edge-chat/store"
)

// SendMessageRequest is the body of POST /api/chats/:chat/messages.
type SendMessageRequest struct {
	Prompt string `json:"prompt"`
	// Model defaults to the configured default model.
	Model string `json:"model"`
}

// SendMessageResponse is the outcome of a send.
type SendMessageResponse struct {
	State       string            `json:"state"`
	UserMessage *chat.MessageView `json:"userMessage,omitempty"`
	BotMessage  *chat.MessageView `json:"botMessage,omitempty"`
	// Failed is set when the generation failed. The bot message then holds the apology.
	Failed bool `json:"failed,omitempty"`
}

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":       s.orchestrator.Models(),
		"defaultModel": s.opts.DefaultModel,
	})
}

func (s *Server) listChats(c *gin.Context) ([]*chat.ChatView, string, error) {
	selected, err := chat.SelectedChat(c.Request.Context(), s.orchestrator.Store(), s.opts.UserID)
	if err != nil {
		return nil, "", err
	}
	query, err := chat.NewChatListQuery(s.orchestrator.Store(), s.opts.UserID)
	if err != nil {
		return nil, "", err
	}
	defer query.Close()
	return chat.NewChatViews(query.Results(), selected), selected, nil
}

func (s *Server) handleListChats(c *gin.Context) {
	chats, selected, err := s.listChats(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats, "selected": selected})
}

func (s *Server) handleCreateChat(c *gin.Context) {
	record, err := s.orchestrator.CreateChat(c.Request.Context(), s.opts.UserID)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat.NewChatViews([]*store.Record{record}, record.Key())[0])
}

func (s *Server) handleToggleSelection(c *gin.Context) {
	selected, err := chat.ToggleSelection(c.Request.Context(), s.orchestrator.Store(), s.opts.UserID, c.Param("chat"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": selected})
}

func (s *Server) listMessages(c *gin.Context, chatKey string) ([]*chat.MessageView, error) {
	if _, err := chat.GetChat(c.Request.Context(), s.orchestrator.Store(), s.opts.UserID, chatKey); err != nil {
		return nil, err
	}
	query, err := chat.NewMessageListQuery(s.orchestrator.Store(), chatKey)
	if err != nil {
		return nil, err
	}
	defer query.Close()
	return chat.NewMessageViews(query.Results()), nil
}

func (s *Server) handleListMessages(c *gin.Context) {
	messages, err := s.listMessages(c, c.Param("chat"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var request SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.Model == "" {
		request.Model = s.opts.DefaultModel
	}
	response, err := s.orchestrator.Send(c.Request.Context(), &chat.SendRequest{
		UserID:  s.opts.UserID,
		ChatKey: c.Param("chat"),
		Prompt:  request.Prompt,
		Model:   request.Model,
	})
	if err != nil {
		s.abort(c, err)
		return
	}
	result := &SendMessageResponse{State: response.State.String()}
	if response.UserMessage != nil {
		result.UserMessage = chat.NewMessageView(response.UserMessage)
	}
	if response.BotMessage != nil {
		result.BotMessage = chat.NewMessageView(response.BotMessage)
	}
	result.Failed = response.Err != nil
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStatus(c *gin.Context) {
	chatKey := c.Param("chat")
	if _, err := chat.GetChat(c.Request.Context(), s.orchestrator.Store(), s.opts.UserID, chatKey); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, s.orchestrator.Status(chatKey))
}

// abort the request with the status matching the error.
func (s *Server) abort(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrChatNotFound), errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, llm.ErrUnknownBackend):
		code = http.StatusBadRequest
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
