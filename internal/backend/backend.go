package backend

import (
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/configuration"
	"github.com/goatplatform/edge-chat/internal/llm"
	"github.com/goatplatform/edge-chat/internal/llm/anthropic"
	"github.com/goatplatform/edge-chat/internal/llm/openai"
)

// Kind of backend.
type Kind string

const (
	KindDummy  Kind = "dummy"
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Providers of remote backends.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// New instantiates the backend described by the config.
func New(config *configuration.Backend) (llm.Backend, error) {
	switch Kind(config.Kind) {
	case KindDummy:
		return NewDummy(config.Name, time.Duration(config.DelayMs)*time.Millisecond), nil

	case KindLocal:
		if config.APIHost == "" {
			return nil, errors.Errorf("local backend (%s) requires an api_host", config.Name)
		}
		if config.Model == "" {
			return nil, errors.Errorf("local backend (%s) requires a model", config.Name)
		}
		client := openai.NewClient(&openai.Opts{BaseURL: config.APIHost, APIKey: config.APIKey})
		return NewLocal(config.Name, client, generationOpts(config)), nil

	case KindRemote:
		if config.Model == "" {
			return nil, errors.Errorf("remote backend (%s) requires a model", config.Name)
		}
		var client llm.Client
		switch config.Provider {
		case "", ProviderOpenAI:
			client = openai.NewClient(&openai.Opts{BaseURL: config.APIHost, APIKey: config.APIKey})
		case ProviderAnthropic:
			client = anthropic.NewClient(&anthropic.Opts{BaseURL: config.APIHost, APIKey: config.APIKey})
		default:
			return nil, errors.Errorf("unknown provider (%s) for backend (%s)", config.Provider, config.Name)
		}
		return NewRemote(config.Name, client, generationOpts(config)), nil
	}
	return nil, errors.Errorf("unknown kind (%s) for backend (%s)", config.Kind, config.Name)
}

// NewRegistry instantiates every configured backend.
func NewRegistry(configs []*configuration.Backend) (*llm.Registry, error) {
	backends := make([]llm.Backend, 0, len(configs))
	for _, config := range configs {
		backend, err := New(config)
		if err != nil {
			return nil, errors.Wrap(err, "instantiating backend")
		}
		backends = append(backends, backend)
	}
	return llm.NewRegistry(backends...)
}

// GenerationOpts for backends talking to an inference server.
type GenerationOpts struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

func generationOpts(config *configuration.Backend) *GenerationOpts {
	return &GenerationOpts{
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	}
}

// generator holds what local and remote backends have in common.
type generator struct {
	id     string
	client llm.Client
	opts   *GenerationOpts
}

func (g *generator) ID() string { return g.id }

// checkServed verifies the server knows the model, when the client can tell.
func (g *generator) checkServed(ctx context.Context) error {
	lister, ok := g.client.(llm.ModelLister)
	if !ok {
		return nil
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		return errors.Wrap(err, "listing models")
	}
	if !slices.Contains(models, g.opts.Model) {
		return errors.Errorf("model (%s) is not served", g.opts.Model)
	}
	return nil
}

// generate a single turn answer to the prompt.
func (g *generator) generate(ctx context.Context, prompt string, onToken func(token, text string)) (string, error) {
	request := &llm.CreateTextGenerationRequest{
		Model:       g.opts.Model,
		Messages:    []*llm.Message{{Role: llm.UserRole, Content: prompt}},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}
	stream, err := g.client.CreateTextGeneration(ctx, request)
	if err != nil {
		return "", errors.Wrap(err, "creating text generation")
	}
	text, err := llm.Collect(ctx, stream, onToken)
	if err != nil {
		return "", errors.Wrap(err, "collecting text generation")
	}
	return text, nil
}
