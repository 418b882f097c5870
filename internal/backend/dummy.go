package backend

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/llm"
)

// DefaultDummyID is used when a dummy backend has no name.
const DefaultDummyID = "Dummy"

var dummyResponses = []string{
	"I'm here to assist you! Could you clarify your request so I can provide the best answer?",
	"Interesting question! Let me think about that for a moment.",
	"I'm not sure I understand. Could you rephrase or provide more details?",
	"Thanks for asking! Unfortunately, I don't have enough information to answer that right now.",
	"That's a great point! Let me know how I can help further.",
}

// Dummy answers with a canned response picked from the prompt. It never reports progress.
type Dummy struct {
	id    string
	delay time.Duration
}

func NewDummy(id string, delay time.Duration) *Dummy {
	if id == "" {
		id = DefaultDummyID
	}
	return &Dummy{id: id, delay: delay}
}

func (d *Dummy) ID() string { return d.id }

// Generate implements the llm.Backend interface.
func (d *Dummy) Generate(ctx context.Context, prompt string, _ llm.ProgressFunc) (string, error) {
	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), "waiting for dummy response")
		}
	}
	hash := fnv.New32a()
	hash.Write([]byte(prompt))
	return dummyResponses[hash.Sum32()%uint32(len(dummyResponses))], nil
}
