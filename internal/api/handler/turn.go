package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Rrens/voice-companion/internal/api/middleware"
	"github.com/Rrens/voice-companion/internal/api/response"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/Rrens/voice-companion/internal/service"
)

const audioDataURIPrefix = "data:audio/mp3;base64,"

// TurnHandler handles conversation turns
type TurnHandler struct {
	chat           ChatService
	maxUploadBytes int64
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(chat ChatService, maxUploadBytes int64) *TurnHandler {
	return &TurnHandler{chat: chat, maxUploadBytes: maxUploadBytes}
}

type textTurnRequest struct {
	ThreadID  string `json:"thread_id"`
	Text      string `json:"text" validate:"required"`
	ReadAloud bool   `json:"read_aloud"`
}

type turnResponse struct {
	*service.TurnResult
	AudioBase64 string `json:"audio_base64,omitempty"`
	AudioURI    string `json:"audio_uri,omitempty"`
}

func newTurnResponse(result *service.TurnResult) turnResponse {
	resp := turnResponse{TurnResult: result}
	if len(result.Audio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(result.Audio)
		resp.AudioURI = audioDataURIPrefix + resp.AudioBase64
	}
	return resp
}

// Text runs a typed turn
func (h *TurnHandler) Text(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req textTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	conv := service.Conversation{UserID: userID, ThreadID: req.ThreadID}
	result, err := h.chat.SubmitText(r.Context(), conv, req.Text, service.TurnOptions{ReadAloud: req.ReadAloud})
	h.writeTurn(w, r, result, err)
}

// Voice runs a spoken turn from a multipart "file" upload
func (h *TurnHandler) Voice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	audio, ok := readUpload(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	readAloud, _ := strconv.ParseBool(r.FormValue("read_aloud"))
	conv := service.Conversation{UserID: userID, ThreadID: r.FormValue("thread_id")}
	result, err := h.chat.SubmitVoice(r.Context(), conv, audio, service.TurnOptions{ReadAloud: readAloud})
	h.writeTurn(w, r, result, err)
}

func (h *TurnHandler) writeTurn(w http.ResponseWriter, r *http.Request, result *service.TurnResult, err error) {
	if err == nil {
		response.OK(w, newTurnResponse(result))
		return
	}

	// The user message is persisted; return it with the failure so the
	// client keeps its thread binding.
	if result != nil && domain.IsGenerationError(err) {
		response.Failure(w, http.StatusBadGateway, err.Error(), newTurnResponse(result))
		return
	}
	writeServiceError(w, r, err)
}

// readUpload reads the multipart "file" field, writing the error response
// itself when it fails.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, bool) {
	if r.ContentLength > maxBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		response.BadRequest(w, "invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return nil, false
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "failed to read upload")
		return nil, false
	}
	return audio, true
}
