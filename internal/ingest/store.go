package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/aiox-platform/ragchat/internal/chunker"
	"github.com/aiox-platform/ragchat/internal/database"
)

// insertBatchSize caps the statements queued in one pgx batch.
const insertBatchSize = 500

// EmbeddedChunk is a chunk ready to be stored.
type EmbeddedChunk struct {
	chunker.Chunk
	Embedding []float32
}

// CorpusStore persists the chunk corpus.
type CorpusStore interface {
	// ReplaceAll swaps the whole corpus. Readers see either the old or the
	// new corpus, never a mix.
	ReplaceAll(ctx context.Context, chunks []EmbeddedChunk) error
	Count(ctx context.Context) (int, error)
}

// PostgresStore writes rag_chunks.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ReplaceAll(ctx context.Context, chunks []EmbeddedChunk) error {
	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM rag_chunks`); err != nil {
			return fmt.Errorf("clearing chunks: %w", err)
		}

		for start := 0; start < len(chunks); start += insertBatchSize {
			end := min(start+insertBatchSize, len(chunks))
			if err := insertBatch(ctx, tx, chunks[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertBatch(ctx context.Context, tx pgx.Tx, chunks []EmbeddedChunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO rag_chunks (doc_name, idx, chunk_text, embedding) VALUES ($1, $2, $3, $4)`,
			c.DocName, c.Index, c.Text, pgvector.NewVector(c.Embedding),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("inserting chunk %s#%d: %w", c.DocName, c.Index, err)
		}
	}
	return br.Close()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM rag_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
