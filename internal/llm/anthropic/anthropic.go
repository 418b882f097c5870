package anthropic

import (
	"context"
	"io"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/goatplatform/edge-chat/internal/llm"
)

const defaultMaxTokens = 1024

type Opts struct {
	BaseURL string
	APIKey  string
}

// Client wraps the go-anthropic client.
type Client struct {
	client *anthropic.Client
}

func NewClient(opts *Opts) *Client {
	var options []anthropic.ClientOption
	if opts.BaseURL != "" {
		options = append(options, anthropic.WithBaseURL(opts.BaseURL))
	}
	return &Client{client: anthropic.NewClient(opts.APIKey, options...)}
}

// StreamWrapper wraps the Anthropic streaming callbacks into a llm.Stream.
type StreamWrapper struct {
	tokens chan string
	cancel context.CancelFunc
	// err is written before tokens is closed.
	err error
}

func (s *StreamWrapper) Close() { s.cancel() }

func (s *StreamWrapper) Recv() (*llm.StreamEvent, error) {
	token, ok := <-s.tokens
	if ok {
		return &llm.StreamEvent{Token: token}, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

// CreateTextGeneration sends a text generation request to the Anthropic API.
func (c *Client) CreateTextGeneration(ctx context.Context, request *llm.CreateTextGenerationRequest) (llm.Stream, error) {
	messages := make([]anthropic.Message, 0, len(request.Messages))
	var system []string
	for _, message := range request.Messages {
		switch message.Role {
		case llm.SystemRole:
			system = append(system, message.Content)
		case llm.UserRole:
			messages = append(messages, anthropic.NewUserTextMessage(message.Content))
		case llm.AssistantRole:
			messages = append(messages, anthropic.NewAssistantTextMessage(message.Content))
		}
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	ctx, cancel := context.WithCancel(ctx)
	sw := &StreamWrapper{
		tokens: make(chan string, 100),
		cancel: cancel,
	}
	anthropicRequest := anthropic.MessagesStreamRequest{
		MessagesRequest: anthropic.MessagesRequest{
			Model:         anthropic.Model(request.Model),
			System:        strings.Join(system, "\n"),
			Messages:      messages,
			MaxTokens:     maxTokens,
			StopSequences: request.StopWords,
		},
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text == nil {
				return
			}
			select {
			case sw.tokens <- *data.Delta.Text:
			case <-ctx.Done():
			}
		},
	}

	go func() {
		_, err := c.client.CreateMessagesStream(ctx, anthropicRequest)
		sw.err = err
		close(sw.tokens)
	}()
	return sw, nil
}
