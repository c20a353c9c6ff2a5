package ingest

import (
	"log/slog"
	"net/http"

	"github.com/aiox-platform/ragchat/internal/api"
)

// Handler exposes reindexing over HTTP.
type Handler struct {
	trigger *Trigger
}

func NewHandler(trigger *Trigger) *Handler {
	return &Handler{trigger: trigger}
}

type reindexResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	DurationMs int64  `json:"duration_ms"`
}

type queuedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Reindex handles POST /api/v1/ingest.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	res, jobID, err := h.trigger.Request(r.Context(), "api")
	if err != nil {
		if h.trigger.Async() {
			slog.Error("queueing reindex", "error", err)
			api.HandleError(w, api.ErrServiceUnavailable)
			return
		}
		slog.Error("reindexing", "error", err)
		api.HandleError(w, api.NewInternalError(err.Error()))
		return
	}

	if jobID != "" {
		api.Write(w, http.StatusAccepted, queuedResponse{JobID: jobID, Status: "queued"})
		return
	}

	api.Write(w, http.StatusOK, reindexResponse{
		Success:    true,
		Message:    inserted(res.Chunks),
		Documents:  res.Documents,
		Chunks:     res.Chunks,
		DurationMs: res.Duration.Milliseconds(),
	})
}
