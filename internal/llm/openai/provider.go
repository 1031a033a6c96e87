package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/voice-companion/internal/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider implements llm.Provider for OpenAI and OpenAI-compatible APIs
type Provider struct {
	name         string
	apiKey       string
	defaultModel string
	models       []string
	client       *goopenai.Client
}

// NewProvider creates a new OpenAI provider. An empty baseURL targets api.openai.com.
func NewProvider(apiKey, baseURL, defaultModel string) llm.Provider {
	if defaultModel == "" {
		defaultModel = goopenai.GPT3Dot5Turbo
	}
	return NewCompatibleProvider("openai", apiKey, baseURL, defaultModel, []string{
		goopenai.GPT3Dot5Turbo,
		goopenai.GPT4oMini,
		goopenai.GPT4o,
		goopenai.GPT4Turbo,
	})
}

// NewCompatibleProvider builds a provider for any endpoint speaking the
// OpenAI chat completions protocol.
func NewCompatibleProvider(name, apiKey, baseURL, defaultModel string, models []string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg.BaseURL = baseURL

	return &Provider{
		name:         name,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		models:       models,
		client:       goopenai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return p.models
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// Complete sends a chat completion with an optional system message
func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", p.name, llm.ErrEmptyCompletion)
	}

	return &llm.Response{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
