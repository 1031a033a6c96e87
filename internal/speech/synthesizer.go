package speech

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"
)

// Synthesizer turns assistant text into mp3 audio with a single TTS call.
type Synthesizer struct {
	client  *goopenai.Client
	model   goopenai.SpeechModel
	voice   goopenai.SpeechVoice
	timeout time.Duration
}

// NewSynthesizer creates a TTS synthesizer
func NewSynthesizer(cfg config.SpeechConfig) *Synthesizer {
	model := goopenai.SpeechModel(cfg.SynthesisModel)
	if model == "" {
		model = goopenai.TTSModel1
	}
	voice := goopenai.SpeechVoice(cfg.Voice)
	if voice == "" {
		voice = goopenai.VoiceAlloy
	}
	timeout := cfg.SynthesisTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{
		client:  newClient(cfg),
		model:   model,
		voice:   voice,
		timeout: timeout,
	}
}

// Synthesize returns mp3 bytes, or nil on blank input or any failure.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) []byte {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	})
	if err != nil {
		log.Warn().Err(err).Msg("speech synthesis failed")
		return nil
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read synthesized audio")
		return nil
	}
	if len(audio) == 0 {
		return nil
	}
	return audio
}
