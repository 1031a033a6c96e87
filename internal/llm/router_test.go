package llm_test

import (
	"context"
	"testing"

	"github.com/Rrens/voice-companion/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
}

func (p stubProvider) Name() string              { return p.name }
func (p stubProvider) AvailableModels() []string { return []string{p.name + "-model"} }
func (p stubProvider) DefaultModel() string      { return p.name + "-model" }
func (p stubProvider) IsConfigured() bool        { return p.configured }
func (p stubProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	return &llm.Response{Content: req.Prompt, Model: model}, nil
}

func TestRouter_GetProvider(t *testing.T) {
	router := llm.NewRouter("openai")
	router.RegisterProvider(stubProvider{name: "openai", configured: true})
	router.RegisterProvider(stubProvider{name: "gemini", configured: false})

	p, err := router.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = router.GetProvider("gemini")
	assert.ErrorContains(t, err, "not configured")

	_, err = router.GetProvider("ollama")
	assert.ErrorContains(t, err, "not found")
}

func TestRouter_ProvidersInfo(t *testing.T) {
	router := llm.NewRouter("ollama")
	router.RegisterProvider(stubProvider{name: "openai", configured: true})
	router.RegisterProvider(stubProvider{name: "ollama", configured: true})
	router.RegisterProvider(stubProvider{name: "deepseek", configured: false})

	assert.Equal(t, []string{"ollama", "openai"}, router.ListProviders())

	infos := router.GetProvidersInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "deepseek", infos[0].Name)
	assert.False(t, infos[0].Configured)
	assert.Equal(t, "ollama", infos[1].Name)
	assert.True(t, infos[1].Default)
	assert.Equal(t, "ollama-model", infos[1].DefaultModel)
}
