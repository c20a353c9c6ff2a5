package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	inats "github.com/aiox-platform/ragchat/internal/nats"
)

// Reindexer rebuilds the corpus.
type Reindexer interface {
	Reindex(ctx context.Context) (*Result, error)
}

// JobPublisher queues reindex jobs for a background consumer.
type JobPublisher interface {
	PublishReindexJob(ctx context.Context, job inats.ReindexJob) error
}

// Trigger starts reindexes. With a publisher the work is queued and the job
// id is returned. Without one the reindex runs in the caller.
type Trigger struct {
	svc Reindexer
	pub JobPublisher
}

// NewTrigger creates a Trigger. pub may be nil.
func NewTrigger(svc Reindexer, pub JobPublisher) *Trigger {
	return &Trigger{svc: svc, pub: pub}
}

// Async reports whether requests are queued.
func (t *Trigger) Async() bool {
	return t.pub != nil
}

// Request runs or queues a reindex. Exactly one of the result and the job id
// is set on success.
func (t *Trigger) Request(ctx context.Context, reason string) (*Result, string, error) {
	if t.pub == nil {
		res, err := t.svc.Reindex(ctx)
		return res, "", err
	}

	job := inats.ReindexJob{
		ID:          uuid.NewString(),
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
	if err := t.pub.PublishReindexJob(ctx, job); err != nil {
		return nil, "", fmt.Errorf("queueing reindex job: %w", err)
	}
	return nil, job.ID, nil
}
