package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"github.com/aiox-platform/ragchat/internal/api"
	"github.com/aiox-platform/ragchat/internal/memory"
)

// Handler serves the chat endpoint.
type Handler struct {
	orch *Orchestrator
}

func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// Chat handles POST /api/v1/chat. Only invalid requests and failed memory
// writes produce error statuses; anything else unexpected, panics included,
// is answered with the apology so the client always gets a reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if strings.TrimSpace(req.ThreadID) == "" {
		req.ThreadID = uuid.NewString()
	}

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		slog.Error("chat: panic while answering",
			"thread_id", req.ThreadID,
			"panic", rec,
			"stack", string(debug.Stack()),
		)
		apologize(w, req.ThreadID)
	}()

	resp, err := h.orch.Answer(r.Context(), req)
	switch {
	case err == nil:
		api.Write(w, http.StatusOK, resp)
	case errors.Is(err, ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, memory.ErrPersistence):
		slog.Error("chat: persisting thread memory", "thread_id", req.ThreadID, "error", err)
		api.HandleError(w, api.NewInternalError("failed to save conversation"))
	default:
		slog.Error("chat: answering", "thread_id", req.ThreadID, "error", err)
		apologize(w, req.ThreadID)
	}
}

func apologize(w http.ResponseWriter, threadID string) {
	api.Write(w, http.StatusOK, Response{
		Response:   ApologyMessage,
		UsedChunks: []UsedChunk{},
		ThreadID:   strings.TrimSpace(threadID),
	})
}
