package service

import (
	"context"

	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockThreadRepository mocks the ThreadRepository interface
type MockThreadRepository struct {
	mock.Mock
}

func (m *MockThreadRepository) CreateThread(ctx context.Context, thread *domain.Thread) error {
	args := m.Called(ctx, thread)
	return args.Error(0)
}

func (m *MockThreadRepository) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockThreadRepository) RenameThread(ctx context.Context, id string, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockThreadRepository) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Thread), args.Error(1)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) InsertMessage(ctx context.Context, threadID string, role domain.MessageRole, content string) (*domain.Message, error) {
	args := m.Called(ctx, threadID, role, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) CountMessages(ctx context.Context, threadID string) (int, error) {
	args := m.Called(ctx, threadID)
	return args.Int(0), args.Error(1)
}

// MockNamer mocks TopicNamer
type MockNamer struct {
	mock.Mock
}

func (m *MockNamer) NameFor(ctx context.Context, message string) string {
	args := m.Called(ctx, message)
	return args.String(0)
}

// MockResponder mocks Responder
type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) Respond(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// MockTranscriber mocks Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte) *string {
	args := m.Called(ctx, audio)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*string)
}

// MockSynthesizer mocks Synthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) []byte {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

// MockTurnLocker mocks TurnLocker
type MockTurnLocker struct {
	mock.Mock
}

func (m *MockTurnLocker) Acquire(ctx context.Context, threadID string) (func(), error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
