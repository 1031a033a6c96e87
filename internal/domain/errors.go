package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput      = errors.New("message text is empty")
	ErrEmptyTranscript = errors.New("transcription produced no text")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrForbidden       = errors.New("thread belongs to another user")
	ErrTurnInProgress  = errors.New("another turn is in progress for this thread")
	ErrNoAudio         = errors.New("speech synthesis produced no audio")
)

// StorageError is returned by every storage gateway operation that fails.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err, returning nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// GenerationError reports a failed call to the response generation service.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation: %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ResponseFormatError means the generation service answered with a body that
// is not an object carrying a string "response" field. It is always returned
// wrapped in a GenerationError.
type ResponseFormatError struct {
	Body string
}

func (e *ResponseFormatError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("unexpected response format: %q", body)
}

// IsGenerationError reports whether err is a GenerationError or a ResponseFormatError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	var fmtErr *ResponseFormatError
	return errors.As(err, &genErr) || errors.As(err, &fmtErr)
}
