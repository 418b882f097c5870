package webserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatplatform/edge-chat/chat"
	"github.com/goatplatform/edge-chat/internal/backend"
	"github.com/goatplatform/edge-chat/internal/llm"
	"github.com/goatplatform/edge-chat/internal/logging"
	"github.com/goatplatform/edge-chat/internal/schema"
	"github.com/goatplatform/edge-chat/store"
)

// failingBackend fails every generation with a diagnostic the user must not see.
type failingBackend struct{}

func (failingBackend) ID() string { return "Failing" }

func (failingBackend) Generate(ctx context.Context, prompt string, onProgress llm.ProgressFunc) (string, error) {
	return "", errors.New("dial tcp 10.0.0.7:1234: connection refused")
}

func newTestServer(t *testing.T, backends ...llm.Backend) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry := schema.NewRegistry()
	require.NoError(t, schema.RegisterSchemas(registry))
	s, err := store.New(context.Background(), &store.Opts{
		DSN:      filepath.Join(t.TempDir(), "records.db"),
		Registry: registry,
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	backends = append([]llm.Backend{backend.NewDummy("Dummy", 0)}, backends...)
	llmRegistry, err := llm.NewRegistry(backends...)
	require.NoError(t, err)
	o := chat.New(s, llmRegistry, chat.Opts{RequestTimeout: time.Minute, Logger: logging.Discard()})
	server, err := New(o, &Opts{
		UserID:         "alice",
		DefaultModel:   "Dummy",
		AllowedOrigins: []string{"http://localhost:8080"},
		Logger:         logging.Discard(),
	})
	require.NoError(t, err)
	return server
}

func do(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		bytesBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bytesBody)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value))
	return value
}

func TestChatLifecycle(t *testing.T) {
	server := newTestServer(t)

	recorder := do(t, server, http.MethodPost, "/api/chats", nil)
	require.Equal(t, http.StatusCreated, recorder.Code)
	created := decode[chat.ChatView](t, recorder)
	assert.Equal(t, "Chat 1", created.Title)
	assert.True(t, created.Selected)

	recorder = do(t, server, http.MethodPost, "/api/chats/"+created.Key+"/messages", &SendMessageRequest{Prompt: "Hello"})
	require.Equal(t, http.StatusOK, recorder.Code)
	sent := decode[SendMessageResponse](t, recorder)
	assert.Equal(t, "Finalized", sent.State)
	assert.False(t, sent.Failed)
	require.NotNil(t, sent.BotMessage)
	assert.Equal(t, "Dummy", sent.BotMessage.ModelID)
	assert.Equal(t, sent.UserMessage.Path, sent.BotMessage.ReplyTo)

	recorder = do(t, server, http.MethodGet, "/api/chats/"+created.Key+"/messages", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listed := decode[struct {
		Messages []*chat.MessageView `json:"messages"`
	}](t, recorder)
	require.Len(t, listed.Messages, 2)
	assert.Equal(t, "Hello", listed.Messages[0].Text)
	assert.Equal(t, sent.BotMessage.Text, listed.Messages[1].Text)

	recorder = do(t, server, http.MethodGet, "/api/chats/"+created.Key+"/status", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, chat.Status{}, decode[chat.Status](t, recorder))
}

func TestGenerationFailureHidesDiagnostic(t *testing.T) {
	server := newTestServer(t, failingBackend{})
	created := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))

	recorder := do(t, server, http.MethodPost, "/api/chats/"+created.Key+"/messages", &SendMessageRequest{Prompt: "Hello", Model: "Failing"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "connection refused")
	sent := decode[SendMessageResponse](t, recorder)
	assert.True(t, sent.Failed)
	assert.Equal(t, "Finalized", sent.State)
	require.NotNil(t, sent.BotMessage)
	assert.Equal(t, chat.ApologyText, sent.BotMessage.Text)
}

func TestWhitespacePromptIsNoop(t *testing.T) {
	server := newTestServer(t)
	created := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))

	recorder := do(t, server, http.MethodPost, "/api/chats/"+created.Key+"/messages", &SendMessageRequest{Prompt: "  "})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Idle", decode[SendMessageResponse](t, recorder).State)
}

func TestListChatsAndToggle(t *testing.T) {
	server := newTestServer(t)
	first := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))
	second := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))

	type listResponse struct {
		Chats    []*chat.ChatView `json:"chats"`
		Selected string           `json:"selected"`
	}
	listed := decode[listResponse](t, do(t, server, http.MethodGet, "/api/chats", nil))
	require.Len(t, listed.Chats, 2)
	assert.Equal(t, second.Key, listed.Chats[0].Key)
	assert.Equal(t, second.Key, listed.Selected)

	recorder := do(t, server, http.MethodPost, "/api/chats/"+first.Key+"/select", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, map[string]string{"selected": first.Key}, decode[map[string]string](t, recorder))

	recorder = do(t, server, http.MethodPost, "/api/chats/"+first.Key+"/select", nil)
	assert.Equal(t, map[string]string{"selected": ""}, decode[map[string]string](t, recorder))
}

func TestErrors(t *testing.T) {
	server := newTestServer(t)
	created := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{name: "unknown chat messages", method: http.MethodGet, path: "/api/chats/missing/messages", code: http.StatusNotFound},
		{name: "unknown chat send", method: http.MethodPost, path: "/api/chats/missing/messages", body: &SendMessageRequest{Prompt: "Hi"}, code: http.StatusNotFound},
		{name: "unknown chat select", method: http.MethodPost, path: "/api/chats/missing/select", code: http.StatusNotFound},
		{name: "unknown chat status", method: http.MethodGet, path: "/api/chats/missing/status", code: http.StatusNotFound},
		{name: "unknown model", method: http.MethodPost, path: "/api/chats/" + created.Key + "/messages", body: &SendMessageRequest{Prompt: "Hi", Model: "GPT-9"}, code: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := do(t, server, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.code, recorder.Code)
			assert.Contains(t, recorder.Body.String(), "error")
		})
	}
}

func TestModels(t *testing.T) {
	server := newTestServer(t)
	recorder := do(t, server, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"models": ["Dummy"], "defaultModel": "Dummy"}`, recorder.Body.String())
}

func TestIndex(t *testing.T) {
	server := newTestServer(t)
	recorder := do(t, server, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Please select a chat")

	created := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))
	do(t, server, http.MethodPost, "/api/chats/"+created.Key+"/messages", &SendMessageRequest{Prompt: "<b>Hello</b>"})
	recorder = do(t, server, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "<title>Chat 1</title>")
	assert.Contains(t, body, "&lt;b&gt;Hello&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Hello</b>")
}

// subscribe opens the event stream of a chat and returns the data of every event with the given name.
func subscribe(t *testing.T, server *Server, chatKey, name string) <-chan string {
	t.Helper()
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, httpServer.URL+"/api/chats/"+chatKey+"/events", nil)
	require.NoError(t, err)
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	t.Cleanup(func() { response.Body.Close() })
	require.Equal(t, http.StatusOK, response.StatusCode)

	events := make(chan string, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(response.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && event == name:
				select {
				case events <- strings.TrimSpace(strings.TrimPrefix(line, "data:")):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events
}

func next(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case data, ok := <-events:
		require.True(t, ok, "event stream closed")
		return data
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
	return ""
}

func TestEvents(t *testing.T) {
	server := newTestServer(t)
	created := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))
	events := subscribe(t, server, created.Key, "messages")

	nextMessages := func() []*chat.MessageView {
		var messages []*chat.MessageView
		require.NoError(t, json.Unmarshal([]byte(next(t, events)), &messages))
		return messages
	}
	assert.Empty(t, nextMessages())

	do(t, server, http.MethodPost, "/api/chats/"+created.Key+"/messages", &SendMessageRequest{Prompt: "Hello"})
	deadline := time.After(5 * time.Second)
	for {
		messages := nextMessages()
		if len(messages) == 2 && messages[1].Text != chat.InProgressMarker {
			assert.Equal(t, "Hello", messages[0].Text)
			return
		}
		select {
		case <-deadline:
			t.Fatal("final snapshot not received")
		default:
		}
	}
}

func TestHTMLEventsMatchPage(t *testing.T) {
	server := newTestServer(t)
	created := decode[chat.ChatView](t, do(t, server, http.MethodPost, "/api/chats", nil))
	events := subscribe(t, server, created.Key, "html")

	nextHTML := func() string {
		var event htmlEvent
		require.NoError(t, json.Unmarshal([]byte(next(t, events)), &event))
		return event.HTML
	}
	assert.NotContains(t, nextHTML(), "message")

	prompt := "Look:\n```go\nfmt.Println(1)\n```"
	do(t, server, http.MethodPost, "/api/chats/"+created.Key+"/messages", &SendMessageRequest{Prompt: prompt})
	var html string
	for !strings.Contains(html, `class="message bot"`) {
		html = nextHTML()
	}
	assert.Contains(t, html, `<pre class="line-numbers"><code class="language-go">fmt.Println(1)</code></pre>`)
	assert.Contains(t, html, `class="message user"`)

	page := do(t, server, http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, page, `<pre class="line-numbers"><code class="language-go">fmt.Println(1)</code></pre>`)
}

func TestFormatMessage(t *testing.T) {
	formatted := formatMessage("Look:\n```go\nfmt.Println(\"<hi>\")\n```\n<script>")
	assert.Equal(t,
		`Look:<br><pre class="line-numbers"><code class="language-go">fmt.Println(&#34;&lt;hi&gt;&#34;)</code></pre><br>&lt;script&gt;`,
		string(formatted))
}
