package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamJobs   = "RAGCHAT_JOBS"
	StreamEvents = "RAGCHAT_EVENTS"
)

// Subject constants.
const (
	SubjectReindexJob    = "ragchat.jobs.reindex"
	SubjectChatCompleted = "ragchat.events.chat.completed"
)

// ReindexJob asks a worker to rebuild the chunk corpus from the data dir.
type ReindexJob struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"` // api, watcher
	RequestedAt time.Time `json:"requested_at"`
}

// ChatEvent is published after an answer has been committed to memory.
type ChatEvent struct {
	ThreadID   string    `json:"thread_id"`
	UsedChunks int       `json:"used_chunks"`
	Degraded   bool      `json:"degraded"`
	Reason     string    `json:"reason,omitempty"` // embedding, generation, credentials
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
