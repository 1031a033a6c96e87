package naming

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string              { return "mock" }
func (m *MockProvider) AvailableModels() []string { return []string{"mock-model"} }
func (m *MockProvider) DefaultModel() string      { return "mock-model" }
func (m *MockProvider) IsConfigured() bool        { return true }

func (m *MockProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func newTestNamer(p llm.Provider) *Namer {
	router := llm.NewRouter("mock")
	router.RegisterProvider(p)
	return NewNamer(router, config.NamingConfig{MaxTokens: 10, Temperature: 0.5, Timeout: time.Second})
}

func TestNamer_SendsFixedInstruction(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, llm.Request{
		System:      Instruction,
		Prompt:      "I have been feeling anxious before exams",
		MaxTokens:   10,
		Temperature: 0.5,
	}, "").Return(&llm.Response{Content: "Exam Anxiety"}, nil)

	name := newTestNamer(p).NameFor(context.Background(), "I have been feeling anxious before exams")

	assert.Equal(t, "Exam Anxiety", name)
	p.AssertExpectations(t)
}

func TestNamer_TruncatesTo30Runes(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(&llm.Response{Content: strings.Repeat("ü", 45)}, nil)

	name := newTestNamer(p).NameFor(context.Background(), "hello")

	assert.Equal(t, MaxNameLength, utf8.RuneCountInString(name))
}

func TestNamer_StripsQuotesAndWhitespace(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(&llm.Response{Content: "  \"Weekend   Plans\"\n"}, nil)

	assert.Equal(t, "Weekend Plans", newTestNamer(p).NameFor(context.Background(), "hello"))
}

func TestNamer_EmptyCompletion(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(&llm.Response{Content: "   "}, nil)

	assert.Equal(t, UntitledName, newTestNamer(p).NameFor(context.Background(), "hello"))
}

func TestNamer_CallFailed(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	assert.Equal(t, FallbackName, newTestNamer(p).NameFor(context.Background(), "hello"))
}

func TestNamer_NoChoices(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, llm.ErrEmptyCompletion)

	assert.Equal(t, FallbackName, newTestNamer(p).NameFor(context.Background(), "hello"))
}

func TestNamer_ProviderMissing(t *testing.T) {
	namer := NewNamer(llm.NewRouter("openai"), config.NamingConfig{})

	assert.Equal(t, FallbackName, namer.NameFor(context.Background(), "hello"))
}

func TestNamer_Timeout(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	router := llm.NewRouter("mock")
	router.RegisterProvider(p)
	namer := NewNamer(router, config.NamingConfig{MaxTokens: 10, Timeout: 20 * time.Millisecond})

	assert.Equal(t, FallbackName, namer.NameFor(context.Background(), "hello"))
}
