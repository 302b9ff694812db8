package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers chat completions per model: models listed in fail get the
// mapped status code, everything else gets "reply from <model>".
type fakeAPI struct {
	mu    sync.Mutex
	fail  map[string]int
	calls []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.calls = append(f.calls, req.Model)
		code := f.fail[req.Model]
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":{"message":"failure %d","type":"test_error"}}`, code)
			return
		}
		fmt.Fprintf(w, `{"id":"1","object":"chat.completion","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":"reply from %s"},"finish_reason":"stop"}]}`, req.Model, req.Model)
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		fmt.Fprint(w, `{"text":"  the room charge was too high  "}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/v1", APIKey: "test"}, zerolog.Nop())
}

func TestChat(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	text, err := c.Chat(context.Background(), "m1", TextMessages("sys", "hi"), 0)
	require.NoError(t, err)
	assert.Equal(t, "reply from m1", text)
}

func TestChatWithFallback_Retryable(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusTooManyRequests} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			api := &fakeAPI{fail: map[string]int{"primary": code}}
			c := newTestClient(t, api)

			text, model, err := c.ChatWithFallback(context.Background(), "primary", "backup", TextMessages("", "hi"), 0)
			require.NoError(t, err)
			assert.Equal(t, "backup", model)
			assert.Equal(t, "reply from backup", text)
			assert.Equal(t, []string{"primary", "backup"}, api.calls)
		})
	}
}

func TestChatWithFallback_NotRetryable(t *testing.T) {
	api := &fakeAPI{fail: map[string]int{"primary": http.StatusUnauthorized}}
	c := newTestClient(t, api)

	_, _, err := c.ChatWithFallback(context.Background(), "primary", "backup", TextMessages("", "hi"), 0)
	require.Error(t, err)
	assert.Equal(t, []string{"primary"}, api.calls)
}

func TestChatWithFallback_BothFail(t *testing.T) {
	api := &fakeAPI{fail: map[string]int{"primary": 429, "backup": 429}}
	c := newTestClient(t, api)

	_, _, err := c.ChatWithFallback(context.Background(), "primary", "backup", TextMessages("", "hi"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both models failed")
}

func TestBreakerOpensPerModel(t *testing.T) {
	api := &fakeAPI{fail: map[string]int{"primary": 500}}
	c := newTestClient(t, api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Chat(ctx, "primary", TextMessages("", "hi"), 0)
		require.Error(t, err)
	}
	_, err := c.Chat(ctx, "primary", TextMessages("", "hi"), 0)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, api.calls, 3, "open breaker should short-circuit the request")

	text, model, err := c.ChatWithFallback(ctx, "primary", "backup", TextMessages("", "hi"), 0)
	require.NoError(t, err)
	assert.Equal(t, "backup", model)
	assert.Equal(t, "reply from backup", text)
}

func TestTranscribe(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	text, err := c.Transcribe(context.Background(), "whisper-large-v3", "note.webm", strings.NewReader("audio"))
	require.NoError(t, err)
	assert.Equal(t, "the room charge was too high", text)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("invalid api key")))
	assert.True(t, IsRetryable(errors.New("You exceeded your current quota")))
	assert.True(t, IsRetryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &openai.APIError{HTTPStatusCode: 404})))
	assert.False(t, IsRetryable(&openai.APIError{HTTPStatusCode: 400, Message: "bad request"}))
	assert.True(t, IsRetryable(gobreaker.ErrOpenState))
}

func TestImageMessage(t *testing.T) {
	msg := ImageMessage("read this", "data:image/png;base64,AAAA")
	require.Len(t, msg.MultiContent, 2)
	assert.Equal(t, "read this", msg.MultiContent[0].Text)
	assert.Equal(t, "data:image/png;base64,AAAA", msg.MultiContent[1].ImageURL.URL)
	assert.Empty(t, msg.Content)
}
