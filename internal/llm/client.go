// Package llm wraps an OpenAI-compatible API with rate limiting, a circuit
// breaker per model and primary/fallback model selection.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("model returned no content")

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64 // 0 disables limiting
	Timeout           time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	api     *openai.Client
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New builds a client for cfg.
func New(cfg Config, log zerolog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		api:      openai.NewClientWithConfig(oc),
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  cfg.Timeout,
		log:      log,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) breaker(model string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[model]; ok {
		return b
	}
	log := c.log
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-" + model,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	c.breakers[model] = b
	return b
}

// call runs fn for model behind the limiter, the model's breaker and the
// request timeout.
func call[T any](ctx context.Context, c *Client, model string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("rate limit wait: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err := c.breaker(model).Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// Chat sends messages to model and returns the first choice's text.
func (c *Client) Chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage, temperature float32) (string, error) {
	text, err := call(ctx, c, model, func(ctx context.Context) (string, error) {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion with %s: %w", model, err)
	}
	return text, nil
}

// ChatWithFallback tries primary and, when the failure is retryable, fallback.
// It returns the text and the model that produced it.
func (c *Client) ChatWithFallback(ctx context.Context, primary, fallback string, messages []openai.ChatCompletionMessage, temperature float32) (string, string, error) {
	text, err := c.Chat(ctx, primary, messages, temperature)
	if err == nil {
		return text, primary, nil
	}
	if fallback == "" || fallback == primary || !IsRetryable(err) {
		return "", primary, err
	}

	c.log.Warn().Err(err).Str("model", primary).Str("fallback", fallback).Msg("primary model unavailable, falling back")
	text, ferr := c.Chat(ctx, fallback, messages, temperature)
	if ferr != nil {
		return "", fallback, fmt.Errorf("both models failed: primary: %w; fallback: %w", err, ferr)
	}
	return text, fallback, nil
}

// Transcribe sends audio read from r to a speech-to-text model. filename is
// used by the API to infer the audio format.
func (c *Client) Transcribe(ctx context.Context, model, filename string, r io.Reader) (string, error) {
	text, err := call(ctx, c, model, func(ctx context.Context) (string, error) {
		resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
			Model:    model,
			FilePath: filename,
			Reader:   r,
			Format:   openai.AudioResponseFormatJSON,
		})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
	if err != nil {
		return "", fmt.Errorf("transcription with %s: %w", model, err)
	}
	return strings.TrimSpace(text), nil
}

// IsRetryable reports whether another model might succeed where this one
// failed: missing model, rate limiting, exhausted quota or an open breaker.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retryableStatus(apiErr.HTTPStatusCode) {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retryableStatus(reqErr.HTTPStatusCode) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"quota", "rate limit", "resource exhausted", "model not found", "model_not_found"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusNotFound || code == http.StatusTooManyRequests
}

// ImageMessage builds a user message carrying prompt and one inline image.
func ImageMessage(prompt, dataURL string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	}
}

// TextMessages builds a system + user exchange. An empty system prompt is omitted.
func TextMessages(system, user string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
}
