package voice

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	model, filename, body string
}

func (f *fakeBackend) Transcribe(_ context.Context, model, filename string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.model, f.filename, f.body = model, filename, string(b)
	return "  I was charged twice for the ICU.\n", nil
}

func TestTranscribeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grievance.webm")
	require.NoError(t, os.WriteFile(path, []byte("opus"), 0o644))

	fb := &fakeBackend{}
	text, err := NewTranscriber(fb, "").TranscribeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "I was charged twice for the ICU.", text)
	assert.Equal(t, DefaultModel, fb.model)
	assert.Equal(t, "grievance.webm", fb.filename)
	assert.Equal(t, "opus", fb.body)
}

func TestTranscribeFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mp3")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewTranscriber(&fakeBackend{}, "").TranscribeFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestTranscribe_DefaultsExtension(t *testing.T) {
	fb := &fakeBackend{}
	_, err := NewTranscriber(fb, "custom").Transcribe(context.Background(), "stdin", strings.NewReader("pcm"))
	require.NoError(t, err)
	assert.Equal(t, "custom", fb.model)
	assert.Equal(t, "stdin.mp3", fb.filename)
}
