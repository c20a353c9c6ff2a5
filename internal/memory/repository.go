package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines thread memory persistence operations.
type Repository interface {
	// FindByThread returns nil, nil when the thread has no record yet.
	FindByThread(ctx context.Context, threadID string) (*Record, error)
	// Upsert creates or replaces the record in one atomic statement.
	Upsert(ctx context.Context, rec *Record) error
}

// PostgresRepository implements Repository on the chat_memories table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindByThread(ctx context.Context, threadID string) (*Record, error) {
	var (
		rec     Record
		history []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT thread_id, full_history, summary_history, updated_at
		 FROM chat_memories
		 WHERE thread_id = $1`,
		threadID,
	).Scan(&rec.ThreadID, &history, &rec.SummaryHistory, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting thread memory: %w", err)
	}

	if err := json.Unmarshal(history, &rec.FullHistory); err != nil {
		return nil, fmt.Errorf("decoding full_history: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) error {
	history := rec.FullHistory
	if history == nil {
		history = []Turn{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding full_history: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO chat_memories (thread_id, full_history, summary_history, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (thread_id) DO UPDATE
		 SET full_history = EXCLUDED.full_history,
		     summary_history = EXCLUDED.summary_history,
		     updated_at = EXCLUDED.updated_at`,
		rec.ThreadID, json.RawMessage(data), rec.SummaryHistory, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting thread memory: %w", err)
	}
	return nil
}
