package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Rrens/voice-companion/internal/api/handler"
	"github.com/Rrens/voice-companion/internal/api/middleware"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/Rrens/voice-companion/internal/llm"
	"github.com/Rrens/voice-companion/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatService mocks handler.ChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) CreateThread(ctx context.Context, userID, firstMessage string) (*domain.Thread, error) {
	args := m.Called(ctx, userID, firstMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockChatService) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Thread), args.Error(1)
}

func (m *MockChatService) GetMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error) {
	args := m.Called(ctx, userID, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockChatService) RenameThread(ctx context.Context, userID, threadID, name string) (*domain.Thread, error) {
	args := m.Called(ctx, userID, threadID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockChatService) SubmitText(ctx context.Context, conv service.Conversation, text string, opts service.TurnOptions) (*service.TurnResult, error) {
	args := m.Called(ctx, conv, text, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TurnResult), args.Error(1)
}

func (m *MockChatService) SubmitVoice(ctx context.Context, conv service.Conversation, audio []byte, opts service.TurnOptions) (*service.TurnResult, error) {
	args := m.Called(ctx, conv, audio, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TurnResult), args.Error(1)
}

func (m *MockChatService) Transcribe(ctx context.Context, audio []byte) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

func (m *MockChatService) Speak(ctx context.Context, text string) ([]byte, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newTestRouter(chat handler.ChatService) http.Handler {
	threads := handler.NewThreadHandler(chat)
	turns := handler.NewTurnHandler(chat, 1<<20)
	speech := handler.NewSpeechHandler(chat, 1<<20)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := r.Header.Get("X-Test-User"); userID != "" {
				r = r.WithContext(middleware.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/threads", threads.List)
	r.Post("/threads", threads.Create)
	r.Patch("/threads/{threadID}", threads.Rename)
	r.Get("/threads/{threadID}/messages", threads.Messages)
	r.Post("/turns/text", turns.Text)
	r.Post("/turns/voice", turns.Voice)
	r.Post("/speech", speech.Speak)
	r.Post("/transcriptions", speech.Transcribe)
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req.Header.Set("X-Test-User", "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func voiceRequest(t *testing.T, target string, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audio != nil {
		part, err := mw.CreateFormFile("file", "recording.wav")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name   string
		store  handler.Pinger
		cache  handler.Pinger
		status int
	}{
		{name: "ready without redis", store: pinger{}, status: http.StatusOK},
		{name: "ready with redis", store: pinger{}, cache: pinger{}, status: http.StatusOK},
		{name: "storage down", store: pinger{err: errors.New("refused")}, status: http.StatusServiceUnavailable},
		{name: "redis down", store: pinger{}, cache: pinger{err: errors.New("refused")}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ReadyCheck(tt.store, tt.cache)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestListLLMProviders(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.ListLLMProviders(llm.NewRouter("openai"))(rec, httptest.NewRequest(http.MethodGet, "/llm-providers", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "openai", data["default_provider"])
	assert.Empty(t, data["providers"])
}

func TestThreadHandler(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("ListThreads", mock.Anything, "user-1").Return([]domain.Thread{
			{ID: "t1", UserID: "user-1", Name: "Rough Day"},
		}, nil)

		rec, body := do(t, newTestRouter(chat), httptest.NewRequest(http.MethodGet, "/threads", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		threads := body["data"].([]any)
		require.Len(t, threads, 1)
		assert.Equal(t, "Rough Day", threads[0].(map[string]any)["name"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		chat := new(MockChatService)
		rec := httptest.NewRecorder()
		newTestRouter(chat).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/threads", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("create without body", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("CreateThread", mock.Anything, "user-1", "").
			Return(&domain.Thread{ID: "t1", UserID: "user-1", Name: domain.DefaultThreadName}, nil)

		rec, body := do(t, newTestRouter(chat), httptest.NewRequest(http.MethodPost, "/threads", nil))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, domain.DefaultThreadName, body["data"].(map[string]any)["name"])
	})

	t.Run("create with first message", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("CreateThread", mock.Anything, "user-1", "I can't sleep").
			Return(&domain.Thread{ID: "t1", UserID: "user-1", Name: "Sleep", Named: true}, nil)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/threads", `{"first_message":"I can't sleep"}`))

		assert.Equal(t, http.StatusCreated, rec.Code)
		chat.AssertExpectations(t)
	})

	t.Run("rename", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("RenameThread", mock.Anything, "user-1", "t1", "Work").
			Return(&domain.Thread{ID: "t1", UserID: "user-1", Name: "Work", Named: true}, nil)

		rec, body := do(t, newTestRouter(chat), jsonRequest(http.MethodPatch, "/threads/t1", `{"name":"Work"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Work", body["data"].(map[string]any)["name"])
	})

	t.Run("rename requires a name", func(t *testing.T) {
		chat := new(MockChatService)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPatch, "/threads/t1", `{}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		chat.AssertNotCalled(t, "RenameThread", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("messages", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("GetMessages", mock.Anything, "user-1", "t1").Return([]domain.Message{
			{ID: "m1", ThreadID: "t1", Role: domain.RoleUser, Content: "hi", Position: 1},
			{ID: "m2", ThreadID: "t1", Role: domain.RoleAssistant, Content: "hello", Position: 2},
		}, nil)

		rec, body := do(t, newTestRouter(chat), httptest.NewRequest(http.MethodGet, "/threads/t1/messages", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		messages := body["data"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "hi", messages[0].(map[string]any)["message"])
		assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
	})
}

func TestThreadHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: domain.NewStorageError("get thread", domain.ErrThreadNotFound), status: http.StatusNotFound},
		{name: "forbidden", err: domain.ErrForbidden, status: http.StatusForbidden},
		{name: "storage", err: domain.NewStorageError("list messages", errors.New("conn reset")), status: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := new(MockChatService)
			chat.On("GetMessages", mock.Anything, "user-1", "t1").Return(nil, tt.err)

			rec, body := do(t, newTestRouter(chat), httptest.NewRequest(http.MethodGet, "/threads/t1/messages", nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestTurnHandler_Text(t *testing.T) {
	t.Run("success with audio", func(t *testing.T) {
		chat := new(MockChatService)
		conv := service.Conversation{UserID: "user-1", ThreadID: "t1"}
		chat.On("SubmitText", mock.Anything, conv, "hello", service.TurnOptions{ReadAloud: true}).
			Return(&service.TurnResult{
				Conversation:     conv,
				ThreadName:       "Greetings",
				UserMessage:      &domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hello", Position: 1},
				AssistantMessage: &domain.Message{ID: "m2", Role: domain.RoleAssistant, Content: "Hi there", Position: 2},
				Audio:            []byte("mp3"),
				Success:          true,
			}, nil)

		rec, body := do(t, newTestRouter(chat),
			jsonRequest(http.MethodPost, "/turns/text", `{"thread_id":"t1","text":"hello","read_aloud":true}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]any)
		assert.Equal(t, true, data["success"])
		assert.Equal(t, "Greetings", data["thread_name"])
		assert.Equal(t, "bXAz", data["audio_base64"])
		assert.Equal(t, "data:audio/mp3;base64,bXAz", data["audio_uri"])
		assert.Equal(t, "t1", data["conversation"].(map[string]any)["thread_id"])
		assert.NotContains(t, data, "Audio")
	})

	t.Run("generation failure returns the persisted user message", func(t *testing.T) {
		chat := new(MockChatService)
		conv := service.Conversation{UserID: "user-1", ThreadID: "t1"}
		chat.On("SubmitText", mock.Anything, conv, "hello", service.TurnOptions{}).
			Return(&service.TurnResult{
				Conversation: conv,
				UserMessage:  &domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hello", Position: 1},
			}, &domain.GenerationError{Op: "request", Err: errors.New("connection refused")})

		rec, body := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/turns/text", `{"thread_id":"t1","text":"hello"}`))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, false, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, false, data["success"])
		assert.NotNil(t, data["user_message"])
		assert.NotContains(t, data, "assistant_message")
	})

	t.Run("missing text", func(t *testing.T) {
		chat := new(MockChatService)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/turns/text", `{"thread_id":"t1"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		chat.AssertNotCalled(t, "SubmitText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank text", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("SubmitText", mock.Anything, mock.Anything, "   ", mock.Anything).Return(nil, domain.ErrEmptyInput)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/turns/text", `{"text":"   "}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("turn in progress", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("SubmitText", mock.Anything, mock.Anything, "hi", mock.Anything).Return(nil, domain.ErrTurnInProgress)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/turns/text", `{"thread_id":"t1","text":"hi"}`))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		chat := new(MockChatService)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/turns/text", `{"text":`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTurnHandler_Voice(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("SubmitVoice", mock.Anything, service.Conversation{UserID: "user-1"}, []byte("RIFF"), service.TurnOptions{ReadAloud: true}).
			Return(&service.TurnResult{
				Conversation: service.Conversation{UserID: "user-1", ThreadID: "new"},
				Transcript:   "I miss home",
				Success:      true,
			}, nil)

		req := voiceRequest(t, "/turns/voice", map[string]string{"read_aloud": "true"}, []byte("RIFF"))
		rec, body := do(t, newTestRouter(chat), req)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]any)
		assert.Equal(t, "I miss home", data["transcript"])
		assert.Equal(t, "new", data["conversation"].(map[string]any)["thread_id"])
	})

	t.Run("thread binding from form", func(t *testing.T) {
		chat := new(MockChatService)
		conv := service.Conversation{UserID: "user-1", ThreadID: "t1"}
		chat.On("SubmitVoice", mock.Anything, conv, []byte("RIFF"), service.TurnOptions{}).
			Return(&service.TurnResult{Conversation: conv, Success: true}, nil)

		req := voiceRequest(t, "/turns/voice", map[string]string{"thread_id": "t1"}, []byte("RIFF"))
		rec, _ := do(t, newTestRouter(chat), req)

		assert.Equal(t, http.StatusOK, rec.Code)
		chat.AssertExpectations(t)
	})

	t.Run("empty transcript", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("SubmitVoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyTranscript)

		rec, _ := do(t, newTestRouter(chat), voiceRequest(t, "/turns/voice", nil, []byte("silence")))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		chat := new(MockChatService)

		rec, _ := do(t, newTestRouter(chat), voiceRequest(t, "/turns/voice", map[string]string{"thread_id": "t1"}, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		chat.AssertNotCalled(t, "SubmitVoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		chat := new(MockChatService)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/turns/voice", `{}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upload too large", func(t *testing.T) {
		chat := new(MockChatService)
		r := chi.NewRouter()
		turns := handler.NewTurnHandler(chat, 16)
		r.Post("/turns/voice", func(w http.ResponseWriter, req *http.Request) {
			turns.Voice(w, req.WithContext(middleware.WithUserID(req.Context(), "user-1")))
		})

		rec, _ := do(t, r, voiceRequest(t, "/turns/voice", nil, bytes.Repeat([]byte("a"), 1024)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestSpeechHandler(t *testing.T) {
	t.Run("speak", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("Speak", mock.Anything, "Take a breath.").Return([]byte("mp3"), nil)

		rec, body := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/speech", `{"text":"Take a breath."}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]any)
		assert.Equal(t, "bXAz", data["audio_base64"])
		assert.Equal(t, "data:audio/mp3;base64,bXAz", data["audio_uri"])
	})

	t.Run("speak without audio", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("Speak", mock.Anything, "hello").Return(nil, domain.ErrNoAudio)

		rec, _ := do(t, newTestRouter(chat), jsonRequest(http.MethodPost, "/speech", `{"text":"hello"}`))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("transcribe", func(t *testing.T) {
		chat := new(MockChatService)
		chat.On("Transcribe", mock.Anything, []byte("RIFF")).Return("hello there", nil)

		rec, body := do(t, newTestRouter(chat), voiceRequest(t, "/transcriptions", nil, []byte("RIFF")))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello there", body["data"].(map[string]any)["transcript"])
	})
}
