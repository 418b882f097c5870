package llm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	tokens []string
	err    error
	block  chan struct{}
	closed bool
}

func (s *fakeStream) Recv() (*StreamEvent, error) {
	if len(s.tokens) > 0 {
		token := s.tokens[0]
		s.tokens = s.tokens[1:]
		return &StreamEvent{Token: token}, nil
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *fakeStream) Close() { s.closed = true }

type fakeBackend struct {
	id    string
	ready error
	calls int
}

func (b *fakeBackend) ID() string { return b.id }
func (b *fakeBackend) Generate(ctx context.Context, prompt string, onProgress ProgressFunc) (string, error) {
	return prompt, nil
}
func (b *fakeBackend) EnsureReady(ctx context.Context) error {
	b.calls++
	return b.ready
}

type plainBackend struct{ id string }

func (b *plainBackend) ID() string { return b.id }
func (b *plainBackend) Generate(ctx context.Context, prompt string, onProgress ProgressFunc) (string, error) {
	return "", nil
}

func TestCollect(t *testing.T) {
	t.Run("concatenates tokens", func(t *testing.T) {
		stream := &fakeStream{tokens: []string{"Hel", "lo", "!"}}
		var seen []string
		text, err := Collect(context.Background(), stream, func(token, text string) {
			seen = append(seen, text)
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello!", text)
		assert.Equal(t, []string{"Hel", "Hello", "Hello!"}, seen)
	})

	t.Run("propagates stream errors", func(t *testing.T) {
		stream := &fakeStream{tokens: []string{"a"}, err: errors.New("boom")}
		_, err := Collect(context.Background(), stream, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("returns on context cancellation", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		stream := &fakeStream{block: block}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := Collect(ctx, stream, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewRegistry(&plainBackend{id: "a"}, &plainBackend{id: "a"})
		require.Error(t, err)
	})

	t.Run("rejects empty ids", func(t *testing.T) {
		_, err := NewRegistry(&plainBackend{})
		require.Error(t, err)
	})

	t.Run("get", func(t *testing.T) {
		registry, err := NewRegistry(&plainBackend{id: "a"}, &plainBackend{id: "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, registry.IDs())
		backend, err := registry.Get("b")
		require.NoError(t, err)
		assert.Equal(t, "b", backend.ID())
		_, err = registry.Get("c")
		assert.True(t, errors.Is(err, ErrUnknownBackend))
	})

	t.Run("ensure ready reports failures per backend", func(t *testing.T) {
		ok := &fakeBackend{id: "ok"}
		broken := &fakeBackend{id: "broken", ready: errors.New("no model")}
		registry, err := NewRegistry(ok, &plainBackend{id: "plain"}, broken)
		require.NoError(t, err)
		failures := registry.EnsureReady(context.Background())
		require.Len(t, failures, 1)
		assert.Contains(t, failures["broken"].Error(), "no model")
		assert.Equal(t, 1, ok.calls)
		assert.Equal(t, 1, broken.calls)
	})
}

func TestProgressFuncReport(t *testing.T) {
	var nilFunc ProgressFunc
	assert.NotPanics(t, func() { nilFunc.Report("x", 1) })

	var status string
	var progress int
	ProgressFunc(func(s string, p int) { status, progress = s, p }).Report("Done!", 100)
	assert.Equal(t, "Done!", status)
	assert.Equal(t, 100, progress)
}
