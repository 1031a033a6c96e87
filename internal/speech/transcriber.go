package speech

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"
)

// Transcriber converts recorded audio to text with a single Whisper call.
type Transcriber struct {
	client  *goopenai.Client
	model   string
	tempDir string
	timeout time.Duration
}

// NewTranscriber creates a Whisper transcriber
func NewTranscriber(cfg config.SpeechConfig) *Transcriber {
	model := cfg.TranscriptionModel
	if model == "" {
		model = goopenai.Whisper1
	}
	timeout := cfg.TranscriptionTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Transcriber{
		client:  newClient(cfg),
		model:   model,
		tempDir: cfg.TempDir,
		timeout: timeout,
	}
}

// Transcribe returns the recognized text, or nil when the audio is empty,
// the call fails, or nothing was recognized.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) *string {
	if len(audio) == 0 {
		return nil
	}

	path, err := writeScratchFile(t.tempDir, audio)
	if err != nil {
		log.Error().Err(err).Msg("failed to stage audio for transcription")
		return nil
	}
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Format:   goopenai.AudioResponseFormatText,
	})
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(audio)).Msg("transcription failed")
		return nil
	}

	text := strings.TrimSpace(resp.Text)
	log.Debug().
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Int("chars", len(text)).
		Msg("transcription complete")
	if text == "" {
		return nil
	}
	return &text
}

// writeScratchFile stores audio under a unique name; the upload needs a file
// name with an audio extension.
func writeScratchFile(dir string, audio []byte) (string, error) {
	f, err := os.CreateTemp(dir, "recording-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}
