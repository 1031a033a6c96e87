// Package speech adapts OpenAI-compatible Whisper transcription and TTS
// synthesis. Both adapters swallow failures: callers get nil and carry on.
package speech

import (
	"github.com/Rrens/voice-companion/internal/config"
	goopenai "github.com/sashabaranov/go-openai"
)

func newClient(cfg config.SpeechConfig) *goopenai.Client {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return goopenai.NewClientWithConfig(clientCfg)
}
