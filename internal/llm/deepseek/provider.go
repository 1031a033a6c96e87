package deepseek

import (
	"github.com/Rrens/voice-companion/internal/llm"
	"github.com/Rrens/voice-companion/internal/llm/openai"
)

const baseURL = "https://api.deepseek.com/v1"

// NewProvider creates a DeepSeek provider over its OpenAI-compatible API
func NewProvider(apiKey, defaultModel string) llm.Provider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	return openai.NewCompatibleProvider("deepseek", apiKey, baseURL, defaultModel, []string{
		"deepseek-chat",
		"deepseek-reasoner",
	})
}
