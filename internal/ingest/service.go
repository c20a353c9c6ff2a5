// Package ingest rebuilds the chunk corpus from the data directory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aiox-platform/ragchat/internal/chunker"
	"github.com/aiox-platform/ragchat/internal/documents"
	"github.com/aiox-platform/ragchat/internal/embedding"
	"github.com/aiox-platform/ragchat/internal/metrics"
	"github.com/aiox-platform/ragchat/internal/retry"
)

var ErrIncompleteEmbeddings = errors.New("embedding generation failed or incomplete")

// DocumentSource yields the documents to index.
type DocumentSource interface {
	Load(ctx context.Context) ([]documents.Document, error)
}

// Result summarizes one reindex run.
type Result struct {
	Documents int
	Chunks    int
	Duration  time.Duration
}

// Service runs reindexes one at a time.
type Service struct {
	source     DocumentSource
	embedder   embedding.Embedder
	store      CorpusStore
	opts       chunker.Options
	embedRetry retry.Policy

	mu  sync.Mutex
	now func() time.Time
}

// NewService creates the reindex service. embedRetry bounds the attempts of
// the corpus embedding call.
func NewService(source DocumentSource, embedder embedding.Embedder, store CorpusStore, opts chunker.Options, embedRetry retry.Policy) *Service {
	return &Service{
		source:     source,
		embedder:   embedder,
		store:      store,
		opts:       opts,
		embedRetry: embedRetry,
		now:        time.Now,
	}
}

// StoredChunks reports the size of the live corpus and records it in the
// chunk gauge, so the gauge is right before the first reindex of a process.
func (s *Service) StoredChunks(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting stored chunks: %w", err)
	}
	metrics.ReindexChunks.Set(float64(n))
	return n, nil
}

// Reindex loads, chunks and embeds every document, then replaces the stored
// corpus in one step. On any failure the previous corpus stays in place.
// Concurrent calls wait for the running one to finish.
func (s *Service) Reindex(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	res, err := s.reindex(ctx)
	if err != nil {
		metrics.ReindexTotal.WithLabelValues("error").Inc()
		slog.Error("ingest: reindex failed", "error", err)
		return nil, err
	}
	res.Duration = s.now().Sub(start)

	metrics.ReindexTotal.WithLabelValues("success").Inc()
	metrics.ReindexChunks.Set(float64(res.Chunks))
	slog.Info("ingest: reindex complete",
		"documents", res.Documents,
		"chunks", res.Chunks,
		"duration", res.Duration,
	)
	return res, nil
}

func (s *Service) reindex(ctx context.Context) (*Result, error) {
	docs, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}

	var chunks []chunker.Chunk
	for _, doc := range docs {
		docChunks := chunker.ChunkDocument(doc.Name, doc.Text, s.opts)
		slog.Debug("ingest: chunked document", "doc", doc.Name, "chunks", len(docChunks))
		chunks = append(chunks, docChunks...)
	}

	stored := make([]EmbeddedChunk, len(chunks))
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		vectors, err := retry.DoValue(ctx, s.embedRetry, func(ctx context.Context) ([][]float32, error) {
			v, err := s.embedder.Embed(ctx, texts)
			if err != nil {
				slog.Warn("ingest: embedding chunks failed", "chunks", len(texts), "error", err)
			}
			return v, err
		})
		if err != nil {
			return nil, fmt.Errorf("embedding chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return nil, fmt.Errorf("%w: %d vectors for %d chunks", ErrIncompleteEmbeddings, len(vectors), len(chunks))
		}
		for i, c := range chunks {
			stored[i] = EmbeddedChunk{Chunk: c, Embedding: vectors[i]}
		}
	}

	if err := s.store.ReplaceAll(ctx, stored); err != nil {
		return nil, fmt.Errorf("replacing corpus: %w", err)
	}

	return &Result{Documents: len(docs), Chunks: len(stored)}, nil
}

func inserted(n int) string {
	return fmt.Sprintf("Inserted %d chunks successfully", n)
}
