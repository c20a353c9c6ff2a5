package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiox-platform/ragchat/internal/api"
	"github.com/aiox-platform/ragchat/internal/chunker"
	"github.com/aiox-platform/ragchat/internal/config"
	"github.com/aiox-platform/ragchat/internal/database"
	"github.com/aiox-platform/ragchat/internal/documents"
	"github.com/aiox-platform/ragchat/internal/embedding"
	"github.com/aiox-platform/ragchat/internal/generation"
	"github.com/aiox-platform/ragchat/internal/ingest"
	"github.com/aiox-platform/ragchat/internal/memory"
	mw "github.com/aiox-platform/ragchat/internal/middleware"
	inats "github.com/aiox-platform/ragchat/internal/nats"
	"github.com/aiox-platform/ragchat/internal/orchestrator"
	"github.com/aiox-platform/ragchat/internal/prompt"
	iredis "github.com/aiox-platform/ragchat/internal/redis"
	"github.com/aiox-platform/ragchat/internal/retrieval"
	"github.com/aiox-platform/ragchat/internal/retry"
	"github.com/aiox-platform/ragchat/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promptFile, err := prompt.LoadFile(cfg.RAG.PromptFile)
	if err != nil {
		slog.Error("loading prompt config", "path", cfg.RAG.PromptFile, "error", err)
		os.Exit(1)
	}

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var (
		natsClient *inats.Client
		publisher  *inats.Publisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	// Model clients
	baseEmbedder := embedding.NewOpenAIEmbedder(embedding.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.EmbeddingModel,
		Dimensions: cfg.LLM.EmbeddingDimensions,
		BatchSize:  cfg.LLM.EmbeddingBatchSize,
	})
	queryEmbedder := embedding.NewCachedEmbedder(baseEmbedder, redisClient, baseEmbedder.Model(), cfg.RAG.EmbeddingCacheTTL)
	generator := generation.NewOpenAIGenerator(generation.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.ChatModel,
		Temperature: cfg.LLM.Temperature,
	})

	// Memory
	memoryMgr := memory.NewManager(
		memory.NewPostgresRepository(pool),
		generator,
		memory.NewThreadLock(redisClient, cfg.RAG.ThreadLockTTL),
		memory.Config{Window: cfg.RAG.HistoryWindow},
	)
	memoryHandler := memory.NewHandler(memoryMgr)

	// Chat
	var events orchestrator.EventPublisher
	if publisher != nil {
		events = publisher
	}
	orch := orchestrator.NewOrchestrator(
		queryEmbedder,
		retrieval.NewRetriever(retrieval.NewPostgresStore(pool)),
		generator,
		memoryMgr,
		events,
		orchestrator.Config{
			Prompt:            promptFile.Prompt,
			Strategies:        promptFile.ReasoningStrategies,
			HasCredentials:    cfg.LLM.APIKey != "",
			TopK:              cfg.RAG.TopK,
			Candidates:        cfg.RAG.Candidates,
			EmbedRetry:        retry.Policy{Attempts: cfg.RAG.EmbedAttempts, Delay: cfg.RAG.EmbedDelay},
			GenerateRetry:     retry.Policy{Attempts: cfg.RAG.GenerateAttempts, Delay: cfg.RAG.GenerateDelay},
			EmbeddingTimeout:  cfg.LLM.EmbeddingTimeout,
			RetrievalTimeout:  cfg.RAG.RetrievalTimeout,
			GenerationTimeout: cfg.LLM.GenerationTimeout,
		},
	)
	chatHandler := orchestrator.NewHandler(orch)

	// Ingestion
	ingestSvc := ingest.NewService(
		documents.NewLoader(cfg.RAG.DataDir),
		baseEmbedder,
		ingest.NewPostgresStore(pool),
		chunker.Options{
			ChunkSize:    cfg.RAG.ChunkSize,
			ChunkOverlap: cfg.RAG.ChunkOverlap,
			Separators:   chunker.DefaultSeparators,
		},
		retry.Policy{Attempts: cfg.RAG.EmbedAttempts, Delay: cfg.RAG.EmbedDelay},
	)
	if n, err := ingestSvc.StoredChunks(ctx); err != nil {
		slog.Warn("counting stored chunks", "error", err)
	} else if n == 0 {
		slog.Warn("corpus is empty, answers have no sources until POST /api/v1/ingest runs")
	} else {
		slog.Info("corpus loaded", "chunks", n)
	}
	var jobs ingest.JobPublisher
	if publisher != nil {
		jobs = publisher
	}
	trigger := ingest.NewTrigger(ingestSvc, jobs)
	ingestHandler := ingest.NewHandler(trigger)

	if natsClient != nil {
		consumer := ingest.NewConsumer(ingestSvc, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("reindex consumer stopped", "error", err)
			}
		}()
	}
	if cfg.Ingest.Watch {
		watcher := ingest.NewWatcher(cfg.RAG.DataDir, cfg.Ingest.Debounce, trigger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("data dir watcher stopped", "error", err)
			}
		}()
	}

	// Router
	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		ChatRateLimiter: mw.NewRateLimiter(
			redisClient, "chat", cfg.RateLimit.ChatMaxRequests, cfg.RateLimit.ChatWindowSec,
		).Middleware,
		Postgres: func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		Redis:    func(ctx context.Context) error { return iredis.HealthCheck(ctx, redisClient) },
	}
	if natsClient != nil {
		routerCfg.NATS = natsClient.HealthCheck
	}
	router := api.NewRouter(routerCfg, api.HandlerSet{
		Chat:        chatHandler.Chat,
		Reindex:     ingestHandler.Reindex,
		GetThread:   memoryHandler.Get,
		ResetThread: memoryHandler.Reset,
		AppendTurn:  memoryHandler.AppendTurn,
	})

	// A chat request may spend every generation attempt plus the embedding
	// and retrieval budgets.
	writeTimeout := time.Duration(cfg.RAG.GenerateAttempts)*(cfg.LLM.GenerationTimeout+cfg.RAG.GenerateDelay) +
		cfg.LLM.EmbeddingTimeout + cfg.RAG.RetrievalTimeout + 15*time.Second

	// Start server
	srv := server.New(cfg.Server, router, writeTimeout)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
