package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/llm"
	"github.com/goatplatform/edge-chat/store"
)

const (
	// ApologyText replaces the reply when the generation fails.
	ApologyText = "Sorry, I encountered an error. Please try again."
	// InProgressMarker is the text of a reply whose generation is in flight.
	InProgressMarker = "..."
)

// ErrChatNotFound is returned when a chat does not exist for the user.
var ErrChatNotFound = errors.New("chat not found")

// Opts for an orchestrator.
type Opts struct {
	// RequestTimeout bounds a single generation. Unbounded if zero.
	RequestTimeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// OnTransition, if set, observes every state transition of every send.
	OnTransition func(*Transition)
}

// Orchestrator drives the sends of every chat. It is safe for concurrent use.
type Orchestrator struct {
	store    *store.Store
	backends *llm.Registry
	opts     Opts
	log      *slog.Logger

	mu     sync.Mutex
	status map[string]*chatStatus
}

// chatStatus is the transient state of a chat with sends in flight.
type chatStatus struct {
	inFlight int
	status   string
	progress int
}

// New orchestrator.
func New(s *store.Store, backends *llm.Registry, opts Opts) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:    s,
		backends: backends,
		opts:     opts,
		log:      log.With("component", "orchestrator"),
		status:   map[string]*chatStatus{},
	}
}

// Store the orchestrator writes to.
func (o *Orchestrator) Store() *store.Store { return o.store }

// Models available to sends, in registration order.
func (o *Orchestrator) Models() []string { return o.backends.IDs() }

// Status of a chat.
func (o *Orchestrator) Status(chatKey string) Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	cs, ok := o.status[chatKey]
	if !ok {
		return Status{}
	}
	return Status{Loading: cs.inFlight > 0, Status: cs.status, Progress: cs.progress}
}

// Loading returns true while a send of the chat awaits its model.
func (o *Orchestrator) Loading(chatKey string) bool {
	return o.Status(chatKey).Loading
}

func (o *Orchestrator) beginGeneration(chatKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cs, ok := o.status[chatKey]
	if !ok {
		cs = &chatStatus{}
		o.status[chatKey] = cs
	}
	cs.inFlight++
}

func (o *Orchestrator) reportProgress(chatKey, status string, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cs, ok := o.status[chatKey]; ok {
		cs.status = status
		cs.progress = progress
	}
}

func (o *Orchestrator) endGeneration(chatKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cs, ok := o.status[chatKey]
	if !ok {
		return
	}
	// The status is shared by the sends of the chat, and cleared with the last of them.
	cs.inFlight--
	if cs.inFlight <= 0 {
		delete(o.status, chatKey)
	}
}

func (o *Orchestrator) transition(chatKey string, from, to State, err error) {
	o.log.Debug("transition", "chat", chatKey, "from", from, "to", to)
	if o.opts.OnTransition != nil {
		o.opts.OnTransition(&Transition{ChatKey: chatKey, From: from, To: to, Err: err})
	}
}
