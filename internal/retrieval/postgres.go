package retrieval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PostgresStore searches rag_chunks with pgvector cosine distance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// SearchSimilar widens the HNSW candidate list to numCandidates for this
// query only, then returns the closest limit chunks.
func (s *PostgresStore) SearchSimilar(ctx context.Context, vec []float32, numCandidates, limit int) ([]Result, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning search tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// SET does not accept bind parameters.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", numCandidates)); err != nil {
		return nil, fmt.Errorf("setting ef_search: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT doc_name, idx, chunk_text, 1 - (embedding <=> $1) AS score
		 FROM rag_chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(vec), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying similar chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.DocName, &r.Index, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, tx.Commit(ctx)
}
