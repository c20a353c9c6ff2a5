package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aiox-platform/ragchat/internal/documents"
)

// Watcher requests a reindex after corpus files in a directory change.
// Bursts of events closer than the debounce interval produce one request.
type Watcher struct {
	dir      string
	debounce time.Duration
	trigger  *Trigger
}

func NewWatcher(dir string, debounce time.Duration, trigger *Trigger) *Watcher {
	return &Watcher{dir: dir, debounce: debounce, trigger: trigger}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	slog.Info("ingest: watching data dir", "dir", w.dir, "debounce", w.debounce)
	return w.loop(ctx, fw.Events, fw.Errors)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("ingest: data dir changed", "file", event.Name, "op", event.Op.String())
			fire = time.After(w.debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			slog.Warn("ingest: file watcher error", "error", err)
		case <-fire:
			fire = nil
			if _, jobID, err := w.trigger.Request(ctx, "watcher"); err != nil {
				slog.Error("ingest: watcher reindex", "error", err)
			} else if jobID != "" {
				slog.Info("ingest: watcher queued reindex", "job_id", jobID)
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !documents.IsSupported(event.Name) {
		return false
	}
	return event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}
