package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const maxCandidates = 1000

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Chunking
	if c.RAG.ChunkSize < 1 {
		errs = append(errs, fmt.Sprintf("RAG_CHUNK_SIZE must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Sprintf("RAG_CHUNK_OVERLAP must be in [0, RAG_CHUNK_SIZE), got %d", c.RAG.ChunkOverlap))
	}

	// Retrieval
	if c.RAG.TopK < 1 {
		errs = append(errs, fmt.Sprintf("RAG_TOP_K must be positive, got %d", c.RAG.TopK))
	}
	if c.RAG.Candidates < c.RAG.TopK {
		errs = append(errs, fmt.Sprintf("RAG_CANDIDATES must be >= RAG_TOP_K, got %d < %d", c.RAG.Candidates, c.RAG.TopK))
	}
	// hnsw.ef_search accepts 1 to 1000.
	if c.RAG.Candidates > maxCandidates {
		errs = append(errs, fmt.Sprintf("RAG_CANDIDATES must be <= %d, got %d", maxCandidates, c.RAG.Candidates))
	}
	if c.RAG.HistoryWindow < 1 {
		errs = append(errs, fmt.Sprintf("RAG_HISTORY_WINDOW must be positive, got %d", c.RAG.HistoryWindow))
	}
	if c.RAG.EmbedAttempts < 1 || c.RAG.GenerateAttempts < 1 {
		errs = append(errs, "RAG_EMBED_ATTEMPTS and RAG_GENERATE_ATTEMPTS must be at least 1")
	}

	if c.LLM.EmbeddingDimensions < 1 {
		errs = append(errs, fmt.Sprintf("LLM_EMBEDDING_DIMENSIONS must be positive, got %d", c.LLM.EmbeddingDimensions))
	}

	// Missing model credentials degrade the chat endpoint instead of blocking startup.
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty, chat answers will use the degraded-service message")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
