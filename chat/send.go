package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/llm"
	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// SendRequest represents a user submission.
type SendRequest struct {
	UserID  string
	ChatKey string
	Prompt  string
	// Model is the ID of the backend to generate the reply with.
	Model string
	// OnProgress, if set, receives the statuses reported by the backend.
	OnProgress llm.ProgressFunc
}

// SendResponse is the outcome of a send.
type SendResponse struct {
	// State reached by the send: Idle when nothing was submitted, Finalized otherwise.
	State State
	// UserMessage recorded for the prompt.
	UserMessage *store.Record
	// BotMessage holding the reply, or the apology when Err is set.
	BotMessage *store.Record
	// Err is the generation failure, if any.
	Err error
}

// Send records the prompt, generates a reply with the requested backend and records it.
// Generation failures are reported in SendResponse.Err and recorded as an apology;
// the returned error is reserved for invalid requests and store failures.
func (o *Orchestrator) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return &SendResponse{State: StateIdle}, nil
	}
	backend, err := o.backends.Get(req.Model)
	if err != nil {
		return nil, err
	}
	chat, err := GetChat(ctx, o.store, req.UserID, req.ChatKey)
	if err != nil {
		return nil, err
	}
	log := o.log.With("chat", req.ChatKey, "model", backend.ID())

	// Idle -> UserRecorded.
	userMessage, err := o.createMessage(ctx, chat, map[string]any{schema.FieldText: req.Prompt})
	if err != nil {
		return nil, errors.Wrap(err, "recording user message")
	}
	o.transition(req.ChatKey, StateIdle, StateUserRecorded, nil)
	response := &SendResponse{State: StateUserRecorded, UserMessage: userMessage}

	// UserRecorded -> AwaitingModel.
	o.beginGeneration(req.ChatKey)
	defer o.endGeneration(req.ChatKey)
	o.transition(req.ChatKey, StateUserRecorded, StateAwaitingModel, nil)
	response.State = StateAwaitingModel

	// Replies are written even if the caller goes away mid generation.
	writeCtx := context.WithoutCancel(ctx)
	reply := &reply{
		orchestrator: o,
		chat:         chat,
		modelID:      backend.ID(),
		replyTo:      userMessage.Path(),
		log:          log,
	}
	generateCtx, cancel := o.generationContext(ctx)
	defer cancel()
	log.Debug("generating")
	text, generateErr := backend.Generate(generateCtx, req.Prompt, func(status string, progress int) {
		o.reportProgress(req.ChatKey, status, progress)
		reply.progress(writeCtx, status)
		req.OnProgress.Report(status, progress)
	})

	// AwaitingModel -> Finalized.
	if generateErr != nil {
		log.Error("generation failed", "error", generateErr)
		text = ApologyText
	}
	botMessage, err := reply.finalize(writeCtx, text)
	response.BotMessage = botMessage
	response.Err = generateErr
	if err != nil {
		return response, errors.Wrap(err, "recording reply")
	}
	o.transition(req.ChatKey, StateAwaitingModel, StateFinalized, generateErr)
	response.State = StateFinalized
	o.transition(req.ChatKey, StateFinalized, StateIdle, nil)
	return response, nil
}

func (o *Orchestrator) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.opts.RequestTimeout)
}

// createMessage in the chat's data scope and bumps the chat's lastModified.
func (o *Orchestrator) createMessage(ctx context.Context, chat *store.Record, fields map[string]any) (*store.Record, error) {
	message, err := o.store.CreateRecord(ctx, &store.CreateRecordRequest{
		Scope:  store.DataPath(chat.Key()),
		Schema: schema.Message,
		Fields: fields,
	})
	if err != nil {
		return nil, err
	}
	if err := chat.Touch(ctx, schema.FieldLastModified); err != nil {
		o.log.Warn("updating chat last modified", "chat", chat.Key(), "error", err)
	}
	return message, nil
}

// reply is the bot message of a send. It is created on the first progress report, or at finalization.
type reply struct {
	orchestrator *Orchestrator
	chat         *store.Record
	modelID      string
	replyTo      string
	log          *slog.Logger

	mu        sync.Mutex
	record    *store.Record
	finalized bool
}

// create the reply with the given text. Callers hold mu.
func (r *reply) create(ctx context.Context, text string) error {
	record, err := r.orchestrator.createMessage(ctx, r.chat, map[string]any{
		schema.FieldText:    text,
		schema.FieldModelID: r.modelID,
		schema.FieldReplyTo: r.replyTo,
	})
	if err != nil {
		return err
	}
	r.record = record
	return nil
}

func (r *reply) progress(ctx context.Context, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	if r.record == nil {
		if err := r.create(ctx, InProgressMarker); err != nil {
			r.log.Warn("creating reply placeholder", "error", err)
			return
		}
	}
	partial, ok := strings.CutPrefix(status, llm.GeneratingPrefix)
	if !ok {
		return
	}
	if err := r.record.Set(ctx, schema.FieldText, partial+InProgressMarker); err != nil {
		r.log.Warn("updating reply placeholder", "error", err)
	}
}

func (r *reply) finalize(ctx context.Context, text string) (*store.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = true
	if r.record == nil {
		if err := r.create(ctx, text); err != nil {
			return nil, err
		}
		return r.record, nil
	}
	if err := r.record.Set(ctx, schema.FieldText, text); err != nil {
		return r.record, err
	}
	return r.record, nil
}
