package memory

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a thread.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is the stored state of one thread: the most recent turns plus a
// running summary of everything older.
type Record struct {
	ThreadID       string    `json:"thread_id"`
	FullHistory    []Turn    `json:"full_history"`
	SummaryHistory string    `json:"summary_history"`
	UpdatedAt      time.Time `json:"updated_at"`
}
