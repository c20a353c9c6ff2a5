package memory

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aiox-platform/ragchat/internal/api"
)

// ThreadIDRule is the validator tag applied to thread ids everywhere.
const ThreadIDRule = "required,max=128,printascii"

// AppendTurnRequest seeds a thread with a turn that did not come from a chat request.
type AppendTurnRequest struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,max=32000"`
}

// Handler handles thread memory HTTP endpoints.
type Handler struct {
	mgr      *Manager
	validate *validator.Validate
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{
		mgr:      mgr,
		validate: validator.New(),
	}
}

// Get returns the stored record of a thread.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	threadID, ok := h.threadID(w, r)
	if !ok {
		return
	}

	rec, err := h.mgr.Get(r.Context(), threadID)
	if err != nil {
		slog.Error("getting thread memory", "thread_id", threadID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if rec == nil {
		api.HandleError(w, api.NewNotFoundError("thread not found"))
		return
	}

	api.JSON(w, http.StatusOK, rec)
}

// Reset clears the history and summary of a thread.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	threadID, ok := h.threadID(w, r)
	if !ok {
		return
	}

	if err := h.mgr.Reset(r.Context(), threadID); err != nil {
		slog.Error("resetting thread memory", "thread_id", threadID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "thread memory reset")
}

// AppendTurn stores one turn on a thread, creating the thread when needed.
func (h *Handler) AppendTurn(w http.ResponseWriter, r *http.Request) {
	threadID, ok := h.threadID(w, r)
	if !ok {
		return
	}

	var req AppendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	rec, err := h.mgr.Append(r.Context(), threadID, Turn{Role: req.Role, Content: req.Content})
	if err != nil {
		slog.Error("appending thread turn", "thread_id", threadID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) threadID(w http.ResponseWriter, r *http.Request) (string, bool) {
	threadID := chi.URLParam(r, "threadID")
	if err := h.validate.Var(threadID, ThreadIDRule); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid thread ID"))
		return "", false
	}
	return threadID, true
}
