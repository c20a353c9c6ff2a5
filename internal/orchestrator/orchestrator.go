// Package orchestrator answers chat questions: embed the question, retrieve
// sources, assemble the prompt, generate and write the turn to memory.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/ragchat/internal/embedding"
	"github.com/aiox-platform/ragchat/internal/memory"
	"github.com/aiox-platform/ragchat/internal/metrics"
	inats "github.com/aiox-platform/ragchat/internal/nats"
	"github.com/aiox-platform/ragchat/internal/prompt"
	"github.com/aiox-platform/ragchat/internal/retrieval"
	"github.com/aiox-platform/ragchat/internal/retry"
)

const (
	// DegradedServiceMessage is returned when no model credentials are configured.
	DegradedServiceMessage = "The assistant is not available right now because the language model is not configured. Please try again later."
	// ApologyMessage replaces an answer the model could not produce.
	ApologyMessage = "Sorry, I couldn't generate an answer right now. Please try again in a moment."

	historyLead    = "Conversation so far:\n"
	publishTimeout = 2 * time.Second
)

// Request is one chat question. An empty ThreadID starts a new thread.
type Request struct {
	Prompt   string `json:"prompt"`
	ThreadID string `json:"thread_id"`
}

// UsedChunk identifies a source that was put into the prompt.
type UsedChunk struct {
	Index   int     `json:"index"`
	DocName string  `json:"docName"`
	Score   float64 `json:"score"`
}

type Response struct {
	Response   string      `json:"response"`
	UsedChunks []UsedChunk `json:"usedChunks"`
	ThreadID   string      `json:"thread_id"`
}

// Retriever finds the chunks closest to a query vector.
type Retriever interface {
	Retrieve(ctx context.Context, vec []float32, k, candidatePool int) ([]retrieval.Result, error)
}

// Generator produces the answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Memory loads a thread before generation and writes it back afterwards.
type Memory interface {
	Begin(ctx context.Context, threadID, question string) (*memory.Session, error)
	Commit(ctx context.Context, s *memory.Session, answer string) error
}

// EventPublisher receives a notification per answered question.
type EventPublisher interface {
	PublishChatEvent(ctx context.Context, event inats.ChatEvent) error
}

// Config holds the per-deployment settings of the pipeline.
type Config struct {
	Prompt     prompt.Config
	Strategies map[string]string

	// HasCredentials is false when no model API key is configured.
	HasCredentials bool

	TopK       int
	Candidates int

	EmbedRetry    retry.Policy
	GenerateRetry retry.Policy

	EmbeddingTimeout  time.Duration
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

// Orchestrator holds no per-thread state; everything lives in Memory.
type Orchestrator struct {
	embedder  embedding.Embedder
	retriever Retriever
	generator Generator
	memory    Memory
	events    EventPublisher
	validator *Validator
	cfg       Config
	now       func() time.Time
}

// NewOrchestrator creates a new Orchestrator. events may be nil.
func NewOrchestrator(
	embedder embedding.Embedder,
	retriever Retriever,
	generator Generator,
	mem Memory,
	events EventPublisher,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		memory:    mem,
		events:    events,
		validator: NewValidator(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Answer runs one question through the pipeline. Embedding, retrieval and
// generation failures degrade the answer instead of failing it. Only
// validation, prompt configuration and the final memory write return errors.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Response, error) {
	if err := o.validator.Validate(&req); err != nil {
		return nil, err
	}
	start := o.now()

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	if !o.cfg.HasCredentials {
		metrics.DegradedAnswersTotal.WithLabelValues("credentials").Inc()
		return &Response{Response: DegradedServiceMessage, UsedChunks: []UsedChunk{}, ThreadID: threadID}, nil
	}

	sess, err := o.memory.Begin(ctx, threadID, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("opening thread memory: %w", err)
	}
	defer sess.Close()

	results, degraded := o.retrieve(ctx, threadID, req.Prompt)

	cfg := o.cfg.Prompt.WithContext(
		retrieval.FormatSources(results),
		historyLead+sess.Context(),
	)
	text, err := prompt.Assemble(cfg, req.Prompt, o.cfg.Strategies)
	if err != nil {
		return nil, fmt.Errorf("assembling prompt: %w", err)
	}

	answer, err := o.generate(ctx, threadID, text)
	if err != nil {
		degraded = "generation"
	}

	// The turn is written even if the client has gone away.
	if err := o.memory.Commit(context.WithoutCancel(ctx), sess, answer); err != nil {
		if !errors.Is(err, memory.ErrPersistence) {
			err = fmt.Errorf("%w: %w", memory.ErrPersistence, err)
		}
		return nil, fmt.Errorf("writing thread memory: %w", err)
	}

	used := make([]UsedChunk, len(results))
	for i, r := range results {
		used[i] = UsedChunk{Index: r.Index, DocName: r.DocName, Score: r.Score}
	}

	o.publish(ctx, inats.ChatEvent{
		ThreadID:   threadID,
		UsedChunks: len(used),
		Degraded:   degraded != "",
		Reason:     degraded,
		DurationMs: o.now().Sub(start).Milliseconds(),
		Timestamp:  o.now().UTC(),
	})

	return &Response{Response: answer, UsedChunks: used, ThreadID: threadID}, nil
}

// retrieve embeds the question and searches the corpus. Any failure yields no
// results and names the step that failed.
func (o *Orchestrator) retrieve(ctx context.Context, threadID, question string) ([]retrieval.Result, string) {
	embedCtx, cancel := withTimeout(ctx, o.cfg.EmbeddingTimeout)
	vec, err := embedding.EmbedQuery(embedCtx, o.embedder, question, o.cfg.EmbedRetry)
	cancel()
	if err != nil {
		metrics.DegradedAnswersTotal.WithLabelValues("embedding").Inc()
		slog.Warn("orchestrator: embedding failed, answering without sources", "thread_id", threadID, "error", err)
		return []retrieval.Result{}, "embedding"
	}

	retrieveCtx, cancel := withTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()
	results, err := o.retriever.Retrieve(retrieveCtx, vec, o.cfg.TopK, o.cfg.Candidates)
	if err != nil {
		metrics.DegradedAnswersTotal.WithLabelValues("retrieval").Inc()
		slog.Warn("orchestrator: retrieval failed, answering without sources", "thread_id", threadID, "error", err)
		return []retrieval.Result{}, "retrieval"
	}
	return results, ""
}

// generate returns the model's answer, or ApologyMessage together with the
// last error when every attempt failed. Each attempt gets its own timeout.
func (o *Orchestrator) generate(ctx context.Context, threadID, text string) (string, error) {
	answer, err := retry.DoValue(ctx, o.cfg.GenerateRetry, func(ctx context.Context) (string, error) {
		ctx, cancel := withTimeout(ctx, o.cfg.GenerationTimeout)
		defer cancel()
		return o.generator.Generate(ctx, text)
	})
	if err != nil {
		metrics.DegradedAnswersTotal.WithLabelValues("generation").Inc()
		slog.Error("orchestrator: generation failed, returning apology", "thread_id", threadID, "error", err)
		return ApologyMessage, err
	}
	return answer, nil
}

func (o *Orchestrator) publish(ctx context.Context, event inats.ChatEvent) {
	if o.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := o.events.PublishChatEvent(ctx, event); err != nil {
		slog.Warn("orchestrator: publishing chat event", "thread_id", event.ThreadID, "error", err)
	}
}

// withTimeout applies d when it is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
