package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TopicNamer produces a thread name from its first message. It never fails.
type TopicNamer interface {
	NameFor(ctx context.Context, message string) string
}

// Responder returns the assistant reply for user text.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Transcriber returns recognized text or nil.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) *string
}

// Synthesizer returns mp3 audio or nil.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) []byte
}

// TurnLocker serializes turns on one thread.
type TurnLocker interface {
	Acquire(ctx context.Context, threadID string) (func(), error)
}

// Conversation is the client's binding to a thread. An empty ThreadID means
// no thread exists yet; the first turn creates one.
type Conversation struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id,omitempty"`
}

// HasThread reports whether the conversation is bound to a thread.
func (c Conversation) HasThread() bool {
	return c.ThreadID != ""
}

// TurnOptions are per-turn client preferences.
type TurnOptions struct {
	ReadAloud bool
}

// SaveResult describes a persisted message and any naming it triggered.
type SaveResult struct {
	Message *domain.Message
	// Name is set when this save named the thread.
	Name string
}

// Renamed reports whether the save named the thread.
func (r *SaveResult) Renamed() bool {
	return r.Name != ""
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Conversation     Conversation    `json:"conversation"`
	ThreadName       string          `json:"thread_name"`
	Transcript       string          `json:"transcript,omitempty"`
	UserMessage      *domain.Message `json:"user_message,omitempty"`
	AssistantMessage *domain.Message `json:"assistant_message,omitempty"`
	Audio            []byte          `json:"-"`
	Success          bool            `json:"success"`
}

// ChatService orchestrates threads, messages and the external adapters.
type ChatService struct {
	threads     domain.ThreadRepository
	messages    domain.MessageRepository
	namer       TopicNamer
	responder   Responder
	transcriber Transcriber
	synthesizer Synthesizer
	locker      TurnLocker
}

// NewChatService creates a new chat service
func NewChatService(
	threads domain.ThreadRepository,
	messages domain.MessageRepository,
	namer TopicNamer,
	responder Responder,
	transcriber Transcriber,
	synthesizer Synthesizer,
) *ChatService {
	return &ChatService{
		threads:     threads,
		messages:    messages,
		namer:       namer,
		responder:   responder,
		transcriber: transcriber,
		synthesizer: synthesizer,
	}
}

// WithTurnLocker enables per-thread turn serialization.
func (s *ChatService) WithTurnLocker(locker TurnLocker) *ChatService {
	s.locker = locker
	return s
}

// CreateThread creates a thread for userID. With a first message the thread
// is named from it immediately; otherwise it keeps the default name. Either
// way the first user message saved later names it again.
func (s *ChatService) CreateThread(ctx context.Context, userID, firstMessage string) (*domain.Thread, error) {
	thread := &domain.Thread{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   domain.DefaultThreadName,
	}
	if strings.TrimSpace(firstMessage) != "" {
		thread.Name = s.namer.NameFor(ctx, firstMessage)
		thread.Named = true
	}

	if err := s.threads.CreateThread(ctx, thread); err != nil {
		return nil, err
	}

	log.Info().
		Str("thread_id", thread.ID).
		Str("user_id", userID).
		Bool("named", thread.Named).
		Msg("Thread created")
	return thread, nil
}

// ListThreads returns the user's threads oldest first
func (s *ChatService) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	return s.threads.ListThreads(ctx, userID)
}

// GetMessages returns a thread's history after checking ownership
func (s *ChatService) GetMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error) {
	if _, err := s.ownedThread(ctx, userID, threadID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, threadID)
}

// RenameThread applies a user-chosen name
func (s *ChatService) RenameThread(ctx context.Context, userID, threadID, name string) (*domain.Thread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyInput
	}
	thread, err := s.ownedThread(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.threads.RenameThread(ctx, threadID, name); err != nil {
		return nil, err
	}
	thread.Name = name
	thread.Named = true
	return thread, nil
}

// SaveMessage persists a message. A user message saved as the thread's first
// message names the thread, replacing any earlier name. Naming problems are
// logged and never fail the save.
func (s *ChatService) SaveMessage(ctx context.Context, threadID string, role domain.MessageRole, content string) (*SaveResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid message role %q", role)
	}

	msg, err := s.messages.InsertMessage(ctx, threadID, role, content)
	if err != nil {
		return nil, err
	}
	result := &SaveResult{Message: msg}

	if role != domain.RoleUser || msg.Position != 1 {
		return result, nil
	}

	name := s.namer.NameFor(ctx, content)
	if err := s.threads.RenameThread(ctx, threadID, name); err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("failed to rename thread")
		return result, nil
	}
	result.Name = name

	log.Info().Str("thread_id", threadID).Str("name", name).Msg("Thread named from first message")
	return result, nil
}

// SubmitText runs one text turn. The returned result is non-nil whenever the
// conversation is bound to a thread, including on failure, so callers can keep
// the binding. A generation failure yields Success=false together with a
// *domain.GenerationError; the user message stays persisted.
func (s *ChatService) SubmitText(ctx context.Context, conv Conversation, text string, opts TurnOptions) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyInput
	}
	return s.runTurn(ctx, conv, text, opts)
}

// SubmitVoice transcribes audio and runs the transcript as a text turn. An
// empty or failed transcription creates and persists nothing.
func (s *ChatService) SubmitVoice(ctx context.Context, conv Conversation, audio []byte, opts TurnOptions) (*TurnResult, error) {
	transcript, err := s.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}

	result, err := s.runTurn(ctx, conv, transcript, opts)
	if result != nil {
		result.Transcript = transcript
	}
	return result, err
}

// Transcribe returns the trimmed transcript or domain.ErrEmptyTranscript.
func (s *ChatService) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", domain.ErrEmptyTranscript
	}
	transcript := s.transcriber.Transcribe(ctx, audio)
	if transcript == nil || strings.TrimSpace(*transcript) == "" {
		return "", domain.ErrEmptyTranscript
	}
	return strings.TrimSpace(*transcript), nil
}

// Speak synthesizes arbitrary text, typically an earlier assistant message.
func (s *ChatService) Speak(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}
	audio := s.synthesizer.Synthesize(ctx, text)
	if len(audio) == 0 {
		return nil, domain.ErrNoAudio
	}
	return audio, nil
}

func (s *ChatService) runTurn(ctx context.Context, conv Conversation, text string, opts TurnOptions) (*TurnResult, error) {
	thread, release, err := s.bindThread(ctx, conv)
	if err != nil {
		return nil, err
	}
	defer release()

	conv.ThreadID = thread.ID
	result := &TurnResult{Conversation: conv, ThreadName: thread.Name}
	logger := log.With().Str("thread_id", thread.ID).Str("user_id", conv.UserID).Logger()

	// Persistence has begun; the turn completes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	saved, err := s.SaveMessage(ctx, thread.ID, domain.RoleUser, text)
	if err != nil {
		return result, err
	}
	result.UserMessage = saved.Message
	if saved.Renamed() {
		result.ThreadName = saved.Name
	}

	reply, err := s.responder.Respond(ctx, text)
	if err != nil {
		logger.Warn().Err(err).Int("position", saved.Message.Position).Msg("Turn failed: no reply generated")
		return result, err
	}

	assistant, err := s.SaveMessage(ctx, thread.ID, domain.RoleAssistant, reply)
	if err != nil {
		return result, err
	}
	result.AssistantMessage = assistant.Message

	if opts.ReadAloud {
		result.Audio = s.synthesizer.Synthesize(ctx, reply)
		if result.Audio == nil {
			logger.Warn().Msg("Read-aloud requested but no audio was produced")
		}
	}

	result.Success = true
	logger.Info().
		Int("user_position", saved.Message.Position).
		Int("assistant_position", assistant.Message.Position).
		Bool("audio", result.Audio != nil).
		Msg("Turn completed")
	return result, nil
}

// bindThread resolves the conversation's thread, creating one when unbound.
// For existing threads it checks ownership and takes the turn lock.
func (s *ChatService) bindThread(ctx context.Context, conv Conversation) (*domain.Thread, func(), error) {
	noop := func() {}

	if !conv.HasThread() {
		thread, err := s.CreateThread(ctx, conv.UserID, "")
		if err != nil {
			return nil, noop, err
		}
		return thread, noop, nil
	}

	thread, err := s.ownedThread(ctx, conv.UserID, conv.ThreadID)
	if err != nil {
		return nil, noop, err
	}

	if s.locker == nil {
		return thread, noop, nil
	}
	release, err := s.locker.Acquire(ctx, thread.ID)
	if errors.Is(err, domain.ErrTurnInProgress) {
		return nil, noop, err
	}
	if err != nil {
		log.Warn().Err(err).Str("thread_id", thread.ID).Msg("turn lock unavailable, continuing unlocked")
		return thread, noop, nil
	}
	return thread, release, nil
}

func (s *ChatService) ownedThread(ctx context.Context, userID, threadID string) (*domain.Thread, error) {
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return thread, nil
}
