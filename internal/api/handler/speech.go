package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/Rrens/voice-companion/internal/api/response"
)

// SpeechHandler exposes transcription and synthesis on their own
type SpeechHandler struct {
	chat           ChatService
	maxUploadBytes int64
}

// NewSpeechHandler creates a new speech handler
func NewSpeechHandler(chat ChatService, maxUploadBytes int64) *SpeechHandler {
	return &SpeechHandler{chat: chat, maxUploadBytes: maxUploadBytes}
}

type speakRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

// Speak synthesizes text, usually an earlier assistant reply
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	audio, err := h.chat.Speak(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	encoded := base64.StdEncoding.EncodeToString(audio)
	response.OK(w, map[string]string{
		"audio_base64": encoded,
		"audio_uri":    audioDataURIPrefix + encoded,
	})
}

// Transcribe returns the transcript of an uploaded recording without
// starting a turn
func (h *SpeechHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	audio, ok := readUpload(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	transcript, err := h.chat.Transcribe(r.Context(), audio)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.OK(w, map[string]string{"transcript": transcript})
}
