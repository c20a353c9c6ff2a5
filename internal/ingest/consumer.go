package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/aiox-platform/ragchat/internal/nats"
)

const (
	consumerName = "ragchat-reindexer"
	jobAckWait   = 10 * time.Minute
)

// Consumer runs reindex jobs from the jobs stream.
type Consumer struct {
	svc         Reindexer
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new reindex job Consumer.
func NewConsumer(svc Reindexer, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		svc:         svc,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamJobs, consumerName, inats.SubjectReindexJob, jobAckWait)
	if err != nil {
		return err
	}

	slog.Info("reindex consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("reindex consumer: fetching jobs", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleJob(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// jobMsg is the subset of jetstream.Msg the handler needs.
type jobMsg interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

func (c *Consumer) handleJob(ctx context.Context, msg jobMsg) {
	var job inats.ReindexJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		slog.Error("reindex consumer: unmarshaling job", "error", err)
		_ = msg.Term()
		return
	}

	res, err := c.svc.Reindex(ctx)
	if err != nil {
		slog.Error("reindex consumer: running job", "job_id", job.ID, "error", err)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("reindex consumer: job done",
		"job_id", job.ID,
		"reason", job.Reason,
		"chunks", res.Chunks,
	)
}
