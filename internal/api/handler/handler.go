// Package handler holds the HTTP handlers of the companion API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Rrens/voice-companion/internal/api/response"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/Rrens/voice-companion/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// ChatService is the orchestrator surface the handlers use.
type ChatService interface {
	CreateThread(ctx context.Context, userID, firstMessage string) (*domain.Thread, error)
	ListThreads(ctx context.Context, userID string) ([]domain.Thread, error)
	GetMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error)
	RenameThread(ctx context.Context, userID, threadID, name string) (*domain.Thread, error)
	SubmitText(ctx context.Context, conv service.Conversation, text string, opts service.TurnOptions) (*service.TurnResult, error)
	SubmitVoice(ctx context.Context, conv service.Conversation, audio []byte, opts service.TurnOptions) (*service.TurnResult, error)
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Speak(ctx context.Context, text string) ([]byte, error)
}

// writeServiceError maps orchestrator errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var storageErr *domain.StorageError

	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrEmptyTranscript):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrThreadNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, domain.ErrTurnInProgress):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoAudio), domain.IsGenerationError(err):
		response.Error(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &storageErr):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("storage failure")
		response.InternalError(w, "storage unavailable")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, "internal error")
	}
}
