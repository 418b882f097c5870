package openai

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/goatplatform/edge-chat/internal/llm"
)

type Opts struct {
	BaseURL string
	APIKey  string
}

// Client for openai compatible inference servers (OpenAI, llama.cpp, LM Studio...).
type Client struct {
	opts   *Opts
	client *openai.Client
}

func NewClient(opts *Opts) *Client {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	client := openai.NewClientWithConfig(config)
	return &Client{
		opts:   opts,
		client: client,
	}
}

type ChatCompletionStreamWrapper struct {
	stream *openai.ChatCompletionStream
}

func (s *ChatCompletionStreamWrapper) Close() { s.stream.Close() }
func (s *ChatCompletionStreamWrapper) Recv() (*llm.StreamEvent, error) {
	response, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.Errorf("ChatCompletionResponse returned no choice: %+v", response)
	}
	return &llm.StreamEvent{
		Token:        response.Choices[0].Delta.Content,
		FinishReason: string(response.Choices[0].FinishReason),
	}, nil
}

func (c *Client) CreateTextGeneration(ctx context.Context, request *llm.CreateTextGenerationRequest) (llm.Stream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages))
	for _, message := range request.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Content: message.Content, Role: message.Role})
	}
	openAIRequest := openai.ChatCompletionRequest{
		Model:       request.Model,
		Stop:        request.StopWords,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		Stream:      true,
		Messages:    messages,
	}
	stream, err := c.client.CreateChatCompletionStream(ctx, openAIRequest)
	if err != nil {
		return nil, errors.Wrap(err, "creating completion stream")
	}
	return &ChatCompletionStreamWrapper{stream}, nil
}

// ListModels served by the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	response, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing models")
	}
	models := make([]string, 0, len(response.Models))
	for _, model := range response.Models {
		models = append(models, model.ID)
	}
	return models, nil
}
