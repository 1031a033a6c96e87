// Package naming derives short thread titles from a thread's first message.
package naming

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/llm"
	"github.com/rs/zerolog/log"
)

const (
	// Instruction is sent as the system message of every naming request.
	Instruction = "Generate a concise topic (max 30 characters) based on the following message."

	// FallbackName is used when the completion call fails.
	FallbackName = "General Chat"
	// UntitledName is used when the call succeeds but yields no text.
	UntitledName = "Untitled Chat"

	MaxNameLength = 30
)

// ProviderSource resolves an LLM provider by name; empty means the default.
type ProviderSource interface {
	GetProvider(name string) (llm.Provider, error)
}

// Namer generates thread names. It never returns an error.
type Namer struct {
	providers   ProviderSource
	provider    string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewNamer creates a namer using the configured provider and limits
func NewNamer(providers ProviderSource, cfg config.NamingConfig) *Namer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 10
	}
	return &Namer{
		providers:   providers,
		provider:    cfg.Provider,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

// NameFor returns a title of at most MaxNameLength runes for message.
func (n *Namer) NameFor(ctx context.Context, message string) string {
	provider, err := n.providers.GetProvider(n.provider)
	if err != nil {
		log.Warn().Err(err).Str("provider", n.provider).Msg("topic naming unavailable, using fallback name")
		return FallbackName
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := provider.Complete(ctx, llm.Request{
		System:      Instruction,
		Prompt:      message,
		MaxTokens:   n.maxTokens,
		Temperature: n.temperature,
	}, n.model)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("topic naming failed, using fallback name")
		return FallbackName
	}

	name := normalize(resp.Content)
	if name == "" {
		return UntitledName
	}
	return name
}

func normalize(content string) string {
	name := strings.Join(strings.Fields(llm.CleanText(content)), " ")
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name
}
