package llm

import (
	"context"

	"github.com/pkg/errors"
)

const (
	UserRole      = "user"
	AssistantRole = "assistant"
	SystemRole    = "system"
)

// GeneratingPrefix marks progress statuses carrying the partial text generated so far.
const GeneratingPrefix = "Generating: "

var (
	// ErrNotReady is returned by backends that require an explicit load when Generate is called
	// before EnsureReady completed. It is a usage error and must not be retried.
	ErrNotReady = errors.New("backend not ready")
	// ErrUnknownBackend is returned when looking up a backend that was never registered.
	ErrUnknownBackend = errors.New("unknown backend")
)

// ProgressFunc receives best-effort status updates while a backend generates.
// Progress is a percentage in [0, 100], not necessarily monotonic.
type ProgressFunc func(status string, progress int)

// Backend turns a prompt into generated text.
// Implementations never mutate caller-owned state: they communicate through the returned text
// and the progress callback only.
type Backend interface {
	// ID of the backend, e.g. "Dummy". It is recorded as the modelId of the replies.
	ID() string
	// Generate text for the prompt. onProgress may be nil.
	Generate(ctx context.Context, prompt string, onProgress ProgressFunc) (string, error)
}

// Initializer is implemented by backends requiring a one time initialization.
// EnsureReady is idempotent.
type Initializer interface {
	EnsureReady(ctx context.Context) error
}

type Message struct {
	Role    string
	Content string
}

type CreateTextGenerationRequest struct {
	Model       string
	Messages    []*Message
	StopWords   []string
	MaxTokens   int
	Temperature float32
}

type StreamEvent struct {
	Token        string
	FinishReason string
}

type Stream interface {
	Recv() (*StreamEvent, error)
	Close()
}

// Client is the transport used by backends talking to an inference server.
type Client interface {
	CreateTextGeneration(context.Context, *CreateTextGenerationRequest) (Stream, error)
}

// ModelLister is implemented by clients able to list the models served.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Report calls onProgress if it is set.
func (f ProgressFunc) Report(status string, progress int) {
	if f != nil {
		f(status, progress)
	}
}
