package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/voice-companion/internal/api/middleware"
	"github.com/Rrens/voice-companion/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// ThreadHandler handles thread endpoints
type ThreadHandler struct {
	chat ChatService
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(chat ChatService) *ThreadHandler {
	return &ThreadHandler{chat: chat}
}

type createThreadRequest struct {
	FirstMessage string `json:"first_message" validate:"max=4000"`
}

type renameThreadRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// List returns the caller's threads oldest first
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	threads, err := h.chat.ListThreads(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.OK(w, threads)
}

// Create starts a new chat. A body is optional.
func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createThreadRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	thread, err := h.chat.CreateThread(r.Context(), userID, req.FirstMessage)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.Created(w, thread)
}

// Rename applies a user-chosen thread name
func (h *ThreadHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req renameThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	thread, err := h.chat.RenameThread(r.Context(), userID, chi.URLParam(r, "threadID"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.OK(w, thread)
}

// Messages returns a thread's history in position order
func (h *ThreadHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	messages, err := h.chat.GetMessages(r.Context(), userID, chi.URLParam(r, "threadID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.OK(w, messages)
}
