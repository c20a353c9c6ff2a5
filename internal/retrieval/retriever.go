// Package retrieval ranks corpus chunks against a query vector.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aiox-platform/ragchat/internal/metrics"
)

// ErrRetrieval wraps store failures. Callers treat it as recoverable.
var ErrRetrieval = errors.New("retrieval error")

const (
	DefaultTopK       = 5
	DefaultCandidates = 50
)

// NoSourcesMarker stands in for the sources block when nothing matched.
const NoSourcesMarker = "No relevant sources were found."

// Result is one ranked chunk. Higher Score means more similar.
type Result struct {
	DocName string  `json:"docName"`
	Index   int     `json:"index"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Store runs the nearest-neighbour query. numCandidates sizes the ANN
// candidate pool and limit caps the rows returned.
type Store interface {
	SearchSimilar(ctx context.Context, vec []float32, numCandidates, limit int) ([]Result, error)
}

type Retriever struct {
	store Store
}

func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns at most k results sorted by score, best first. An empty
// query vector returns no results without touching the store.
func (r *Retriever) Retrieve(ctx context.Context, vec []float32, k, candidatePool int) ([]Result, error) {
	if len(vec) == 0 {
		return []Result{}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if candidatePool < k {
		candidatePool = k
	}

	results, err := r.store.SearchSimilar(ctx, vec, candidatePool, k)
	if err != nil {
		return nil, fmt.Errorf("searching similar chunks: %v: %w", err, ErrRetrieval)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []Result{}
	}
	metrics.RetrievalResults.Observe(float64(len(results)))
	return results, nil
}

// FormatSources renders results as numbered blocks carrying document name and
// score, in rank order.
func FormatSources(results []Result) string {
	if len(results) == 0 {
		return NoSourcesMarker
	}

	var b strings.Builder
	b.WriteString("Relevant sources:")
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n[%d] %s (score %.3f)\n%s", i+1, r.DocName, r.Score, strings.TrimSpace(r.Text))
	}
	return b.String()
}
