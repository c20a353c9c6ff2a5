package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	LLM       LLMConfig
	RAG       RAGConfig
	Ingest    IngestConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables async ingestion and chat events.
type NATSConfig struct {
	URL string
}

// LLMConfig points both model clients at an OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingBatchSize  int
	Temperature         float32
	EmbeddingTimeout    time.Duration
	GenerationTimeout   time.Duration
}

type RAGConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	Candidates        int
	HistoryWindow     int
	DataDir           string
	PromptFile        string
	RetrievalTimeout  time.Duration
	EmbedAttempts     int
	EmbedDelay        time.Duration
	GenerateAttempts  int
	GenerateDelay     time.Duration
	EmbeddingCacheTTL time.Duration
	ThreadLockTTL     time.Duration
}

type IngestConfig struct {
	Watch    bool
	Debounce time.Duration
}

type RateLimitConfig struct {
	ChatMaxRequests int
	ChatWindowSec   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		LLM: LLMConfig{
			APIKey:              k.String("llm.api.key"),
			BaseURL:             k.String("llm.base.url"),
			ChatModel:           k.String("llm.chat.model"),
			EmbeddingModel:      k.String("llm.embedding.model"),
			EmbeddingDimensions: k.Int("llm.embedding.dimensions"),
			EmbeddingBatchSize:  k.Int("llm.embedding.batch.size"),
			Temperature:         float32(k.Float64("llm.temperature")),
		},
		RAG: RAGConfig{
			ChunkSize:        k.Int("rag.chunk.size"),
			ChunkOverlap:     k.Int("rag.chunk.overlap"),
			TopK:             k.Int("rag.top.k"),
			Candidates:       k.Int("rag.candidates"),
			HistoryWindow:    k.Int("rag.history.window"),
			DataDir:          k.String("rag.data.dir"),
			PromptFile:       k.String("rag.prompt.file"),
			EmbedAttempts:    k.Int("rag.embed.attempts"),
			GenerateAttempts: k.Int("rag.generate.attempts"),
		},
		Ingest: IngestConfig{
			Watch: k.Bool("ingest.watch"),
		},
		RateLimit: RateLimitConfig{
			ChatMaxRequests: k.Int("ratelimit.chat.max.requests"),
			ChatWindowSec:   k.Int("ratelimit.chat.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	applyDefaults(cfg, k.Exists)

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"llm.embedding.timeout", "10s", &cfg.LLM.EmbeddingTimeout},
		{"llm.generation.timeout", "60s", &cfg.LLM.GenerationTimeout},
		{"rag.retrieval.timeout", "5s", &cfg.RAG.RetrievalTimeout},
		{"rag.embed.delay", "500ms", &cfg.RAG.EmbedDelay},
		{"rag.generate.delay", "700ms", &cfg.RAG.GenerateDelay},
		{"rag.embedding.cache.ttl", "24h", &cfg.RAG.EmbeddingCacheTTL},
		{"rag.thread.lock.ttl", "3m", &cfg.RAG.ThreadLockTTL},
		{"ingest.debounce", "2s", &cfg.Ingest.Debounce},
	}
	for _, d := range durations {
		raw := k.String(d.key)
		if raw == "" {
			raw = d.def
		}
		*d.dest, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

// applyDefaults fills zero values. Keys for which zero is a meaningful
// setting are only defaulted when isSet reports them absent.
func applyDefaults(cfg *Config, isSet func(key string) bool) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "ragchat"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "ragchat"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if cfg.LLM.ChatModel == "" {
		cfg.LLM.ChatModel = "gemini-2.5-flash"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.LLM.EmbeddingDimensions == 0 {
		cfg.LLM.EmbeddingDimensions = 768
	}
	if cfg.LLM.EmbeddingBatchSize == 0 {
		cfg.LLM.EmbeddingBatchSize = 100
	}
	if cfg.LLM.Temperature == 0 && !isSet("llm.temperature") {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.ChunkOverlap == 0 && !isSet("rag.chunk.overlap") {
		cfg.RAG.ChunkOverlap = 50
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.Candidates == 0 {
		cfg.RAG.Candidates = 50
	}
	if cfg.RAG.HistoryWindow == 0 {
		cfg.RAG.HistoryWindow = 10
	}
	if cfg.RAG.DataDir == "" {
		cfg.RAG.DataDir = "data"
	}
	if cfg.RAG.PromptFile == "" {
		cfg.RAG.PromptFile = "prompts/assistant.yaml"
	}
	if cfg.RAG.EmbedAttempts == 0 {
		cfg.RAG.EmbedAttempts = 2
	}
	if cfg.RAG.GenerateAttempts == 0 {
		cfg.RAG.GenerateAttempts = 2
	}
	if cfg.RateLimit.ChatMaxRequests == 0 {
		cfg.RateLimit.ChatMaxRequests = 30
	}
	if cfg.RateLimit.ChatWindowSec == 0 {
		cfg.RateLimit.ChatWindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
