package backend

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/llm"
)

// Remote talks to an inference process that must be loaded explicitly with EnsureReady
// before any generation.
type Remote struct {
	generator

	loadMu sync.Mutex
	ready  atomic.Bool
}

func NewRemote(id string, client llm.Client, opts *GenerationOpts) *Remote {
	return &Remote{generator: generator{id: id, client: client, opts: opts}}
}

// EnsureReady implements the llm.Initializer interface.
func (r *Remote) EnsureReady(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.ready.Load() {
		return nil
	}
	if err := r.checkServed(ctx); err != nil {
		return err
	}
	r.ready.Store(true)
	return nil
}

// Generate implements the llm.Backend interface.
func (r *Remote) Generate(ctx context.Context, prompt string, _ llm.ProgressFunc) (string, error) {
	if !r.ready.Load() {
		return "", errors.Wrapf(llm.ErrNotReady, "%s was not loaded", r.id)
	}
	return r.generate(ctx, prompt, nil)
}
