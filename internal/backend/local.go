package backend

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/llm"
)

const (
	StatusLoadingModel       = "Loading model..."
	StatusModelLoaded        = "Model loaded"
	StatusStartingGeneration = "Starting generation..."
	StatusDone               = "Done!"
)

// Local talks to an inference server running next to the process. The model is loaded lazily
// on the first generation, and progress is reported as tokens stream in.
type Local struct {
	generator

	mu     sync.Mutex
	loaded bool
}

func NewLocal(id string, client llm.Client, opts *GenerationOpts) *Local {
	return &Local{generator: generator{id: id, client: client, opts: opts}}
}

// EnsureReady implements the llm.Initializer interface.
func (l *Local) EnsureReady(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	if err := l.checkServed(ctx); err != nil {
		return err
	}
	l.loaded = true
	return nil
}

func (l *Local) isLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Generate implements the llm.Backend interface.
func (l *Local) Generate(ctx context.Context, prompt string, onProgress llm.ProgressFunc) (string, error) {
	if !l.isLoaded() {
		onProgress.Report(StatusLoadingModel, 0)
		if err := l.EnsureReady(ctx); err != nil {
			return "", errors.Wrap(err, "loading model")
		}
		onProgress.Report(StatusModelLoaded, 25)
	}

	onProgress.Report(StatusStartingGeneration, 50)
	text, err := l.generate(ctx, prompt, func(_, text string) {
		onProgress.Report(llm.GeneratingPrefix+text, 75)
	})
	if err != nil {
		return "", err
	}
	onProgress.Report(StatusDone, 100)
	return text, nil
}
