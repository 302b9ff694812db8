// Package extract reads a bill image or PDF into raw JSON using a vision
// model. The JSON is parsed by package intake.
package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/gyeh/billaudit/internal/llm"
	"github.com/gyeh/billaudit/internal/normalize"
)

// Extractor turns a bill document into the model's raw JSON answer.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]byte, error)
}

// Document is an uploaded bill.
type Document struct {
	Name string // file name, used to guess the MIME type
	Data []byte
}

// MIMEType guesses the document type from its name, then its content.
func (d Document) MIMEType() string {
	switch strings.ToLower(filepath.Ext(d.Name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return http.DetectContentType(d.Data)
}

// DataURL encodes the document for inline transfer.
func (d Document) DataURL() string {
	return "data:" + d.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// Chatter is the subset of llm.Client used here.
type Chatter interface {
	ChatWithFallback(ctx context.Context, primary, fallback string, messages []openai.ChatCompletionMessage, temperature float32) (string, string, error)
}

// VisionExtractor asks a vision model to transcribe the bill. Answers are
// cached by document hash so re-analysing the same upload is free.
type VisionExtractor struct {
	chat     Chatter
	model    string
	fallback string
	cache    *lru.Cache[string, []byte]
	log      zerolog.Logger
}

var _ Extractor = (*VisionExtractor)(nil)

// NewVisionExtractor builds an extractor. cacheSize <= 0 disables caching.
func NewVisionExtractor(chat Chatter, model, fallback string, cacheSize int, log zerolog.Logger) (*VisionExtractor, error) {
	e := &VisionExtractor{chat: chat, model: model, fallback: fallback, log: log}
	if cacheSize > 0 {
		c, err := lru.New[string, []byte](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create extraction cache: %w", err)
		}
		e.cache = c
	}
	return e, nil
}

func (e *VisionExtractor) Extract(ctx context.Context, doc Document) ([]byte, error) {
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("empty document %q", doc.Name)
	}
	key := normalize.BytesHash(doc.Data)
	if e.cache != nil {
		if out, ok := e.cache.Get(key); ok {
			e.log.Debug().Str("sha256", key).Msg("extraction cache hit")
			return out, nil
		}
	}

	msgs := []openai.ChatCompletionMessage{llm.ImageMessage(Prompt, doc.DataURL())}
	text, model, err := e.chat.ChatWithFallback(ctx, e.model, e.fallback, msgs, 0)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("model", model).Str("document", doc.Name).Int("bytes", len(text)).Msg("bill extracted")

	out := []byte(text)
	if e.cache != nil {
		e.cache.Add(key, out)
	}
	return out, nil
}
