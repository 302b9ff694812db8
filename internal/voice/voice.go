// Package voice turns a patient's spoken grievance into text.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultModel is the speech-to-text model used when none is configured.
const DefaultModel = "whisper-large-v3"

// ErrNoAudio is returned for an empty recording.
var ErrNoAudio = errors.New("no audio provided")

// Backend is the subset of llm.Client used here.
type Backend interface {
	Transcribe(ctx context.Context, model, filename string, r io.Reader) (string, error)
}

// Transcriber sends recordings to a speech-to-text model.
type Transcriber struct {
	backend Backend
	model   string
}

func NewTranscriber(backend Backend, model string) *Transcriber {
	if model == "" {
		model = DefaultModel
	}
	return &Transcriber{backend: backend, model: model}
}

// Transcribe reads the recording from r. name carries the file extension the
// API uses to detect the format; it defaults to an mp3 name.
func (t *Transcriber) Transcribe(ctx context.Context, name string, r io.Reader) (string, error) {
	if name == "" || filepath.Ext(name) == "" {
		name += ".mp3"
	}
	text, err := t.backend.Transcribe(ctx, t.model, filepath.Base(name), r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// TranscribeFile transcribes the recording stored at path.
func (t *Transcriber) TranscribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat recording: %w", err)
	}
	if info.Size() == 0 {
		return "", ErrNoAudio
	}
	return t.Transcribe(ctx, path, f)
}
