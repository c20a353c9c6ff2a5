package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aiox-platform/ragchat/internal/metrics"
)

// ErrPersistence is returned when the final write of a thread fails.
var ErrPersistence = errors.New("memory persistence error")

// Summarizer compresses evicted turns. It is a language model call.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

const summaryTemplate = `Summarize the following part of a conversation between a user and a product assistant in 2-3 key points.
Emphasize the user's goals, any unresolved issues and the product features that were mentioned.
Write short plain sentences without headings or markdown.

Summary so far:
%s

Turns to summarize:
%s`

// Manager owns the read-modify-write cycle of thread records: a bounded
// window of recent turns plus a rolling summary of evicted ones.
type Manager struct {
	repo       Repository
	summarizer Summarizer
	lock       *ThreadLock
	cfg        Config
	now        func() time.Time
}

// NewManager creates a memory manager. lock may be nil.
func NewManager(repo Repository, summarizer Summarizer, lock *ThreadLock, cfg Config) *Manager {
	return &Manager{
		repo:       repo,
		summarizer: summarizer,
		lock:       lock,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
}

// Window returns the number of turns kept verbatim.
func (m *Manager) Window() int {
	return m.cfg.Window
}

// Session is the in-flight state of one request on a thread. It must be
// finished with Commit or Close.
type Session struct {
	threadID string
	summary  string
	history  []Turn
	window   int
	release  func()
}

func (s *Session) ThreadID() string { return s.threadID }

// Context renders the summary and the recent turns, including the question
// that opened the session.
func (s *Session) Context() string {
	return RenderContext(s.summary, s.history, s.window)
}

// Close releases the thread lock without writing anything.
func (s *Session) Close() {
	if s.release != nil {
		s.release()
	}
}

// Begin loads the thread and appends the user's question. A failed read is
// logged and treated as an empty thread.
func (m *Manager) Begin(ctx context.Context, threadID, question string) (*Session, error) {
	s, err := m.open(ctx, threadID, true)
	if err != nil {
		return nil, err
	}
	s.history = append(s.history, Turn{Role: RoleUser, Content: question})
	return s, nil
}

// open locks and loads a thread. With tolerateRead a failed read yields an
// empty session; otherwise the lock is released and the error returned.
func (m *Manager) open(ctx context.Context, threadID string, tolerateRead bool) (*Session, error) {
	if threadID == "" {
		return nil, errors.New("thread id is required")
	}

	s := &Session{threadID: threadID, window: m.cfg.Window}

	if m.lock != nil {
		release, err := m.lock.Acquire(ctx, threadID, m.cfg.LockWait)
		if err != nil {
			slog.Warn("memory: proceeding without thread lock", "thread_id", threadID, "error", err)
		} else {
			s.release = release
		}
	}

	rec, err := m.repo.FindByThread(ctx, threadID)
	if err != nil {
		if !tolerateRead {
			s.Close()
			return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
		}
		slog.Warn("memory: loading thread failed, starting empty", "thread_id", threadID, "error", err)
		rec = nil
	}
	if rec != nil {
		s.summary = rec.SummaryHistory
		s.history = append(s.history, rec.FullHistory...)
	}
	return s, nil
}

// Commit appends the assistant's answer, summarizes whatever falls out of
// the window and persists the thread. The session is closed either way.
func (m *Manager) Commit(ctx context.Context, s *Session, answer string) error {
	defer s.Close()

	history := append(s.history, Turn{Role: RoleAssistant, Content: answer})
	rec, err := m.save(ctx, s.threadID, s.summary, history)
	if err != nil {
		return err
	}

	s.summary = rec.SummaryHistory
	s.history = rec.FullHistory
	return nil
}

// Append adds a single turn to a thread outside of a chat request. Unlike
// Begin, a failed read is returned so the stored record is never replaced.
func (m *Manager) Append(ctx context.Context, threadID string, turn Turn) (*Record, error) {
	s, err := m.open(ctx, threadID, false)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return m.save(ctx, threadID, s.summary, append(s.history, turn))
}

// Get returns the stored record, or nil when the thread is unknown.
func (m *Manager) Get(ctx context.Context, threadID string) (*Record, error) {
	rec, err := m.repo.FindByThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
	}
	return rec, nil
}

// Reset clears both the window and the summary of a thread.
func (m *Manager) Reset(ctx context.Context, threadID string) error {
	rec := &Record{ThreadID: threadID, FullHistory: []Turn{}, UpdatedAt: m.now()}
	if err := m.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("resetting thread %s: %v: %w", threadID, err, ErrPersistence)
	}
	return nil
}

func (m *Manager) save(ctx context.Context, threadID, summary string, history []Turn) (*Record, error) {
	if overflow := len(history) - m.cfg.Window; overflow > 0 {
		evicted := history[:overflow]
		text, err := m.summarize(ctx, summary, evicted)
		if err != nil {
			metrics.SummariesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("summarizing evicted turns: %w", err)
		}
		metrics.SummariesTotal.WithLabelValues("success").Inc()

		summary = appendSummary(summary, text)
		history = append([]Turn(nil), history[overflow:]...)
	}

	rec := &Record{
		ThreadID:       threadID,
		FullHistory:    history,
		SummaryHistory: summary,
		UpdatedAt:      m.now(),
	}
	if err := m.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving thread %s: %v: %w", threadID, err, ErrPersistence)
	}
	return rec, nil
}

func (m *Manager) summarize(ctx context.Context, summary string, evicted []Turn) (string, error) {
	if m.summarizer == nil {
		return "", errors.New("no summarizer configured")
	}
	existing := strings.TrimSpace(summary)
	if existing == "" {
		existing = "(none)"
	}
	return m.summarizer.Summarize(ctx, fmt.Sprintf(summaryTemplate, existing, renderTurns(evicted)))
}

// appendSummary only ever extends the existing summary.
func appendSummary(old, addition string) string {
	addition = strings.TrimSpace(addition)
	switch {
	case addition == "":
		return old
	case old == "":
		return addition
	default:
		return old + "\n" + addition
	}
}
