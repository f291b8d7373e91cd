// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-coding-tasks/internal/config"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/domain/ports/repository"
	aiAdapters "ai-coding-tasks/internal/infra/adapters/ai"
	"ai-coding-tasks/internal/infra/adapters/vcs"
	"ai-coding-tasks/internal/infra/db/memory"
	pg "ai-coding-tasks/internal/infra/db/postgres"
	"ai-coding-tasks/internal/infra/logging"
	"ai-coding-tasks/internal/infra/metrics"
	"ai-coding-tasks/internal/infra/queue"
	red "ai-coding-tasks/internal/infra/redis"
	"ai-coding-tasks/internal/infra/sched"
	"ai-coding-tasks/internal/infra/web"
	"ai-coding-tasks/internal/infra/worker"
	"ai-coding-tasks/internal/infra/workspace"
	"ai-coding-tasks/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Storage backend ----
	var (
		txm      repository.TransactionManager
		tasks    repository.TaskRepository
		credits  repository.CreditRepository
		results  repository.ResultRepository
		pricing  repository.ModelPricingRepository
		jobStore repository.JobStore
	)
	switch cfg.Queue.Backend {
	case "memory":
		logger.Warn().Msg("memory backend selected; state is lost on restart")
		txm = memory.NewTxManager()
		tasks = memory.NewTaskRepo()
		credits = memory.NewCreditRepo()
		results = memory.NewResultRepo()
		pricing = memory.NewPricingRepo()
		jobStore = memory.NewJobStore()
	default:
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		pgTxm := pg.NewTxManager(pool)
		txm = pgTxm
		tasks = pg.NewTaskRepo(pool)
		credits = pg.NewCreditRepo(pool)
		results = pg.NewResultRepo(pool)
		pricing = pg.NewCachedPricingRepo(pg.NewPricingRepo(pool), 5*time.Minute)
		jobStore = pg.NewJobStore(pool, pgTxm)
	}

	// ---- Redis (progress store + submit lock; optional with the memory backend) ----
	var progress repository.ProgressStore
	var submitLock usecase.SubmitLocker
	if cfg.Queue.Backend == "memory" && cfg.Redis.URL == "" {
		progress = memory.NewProgressStore()
	} else {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		progress = red.NewProgressStore(redisClient)
		submitLock = red.NewLocker(redisClient)
	}

	// ---- Queue ----
	q := queue.New(jobStore, queue.Config{
		MaxAttempts:      cfg.Queue.MaxAttempts,
		BackoffBase:      cfg.Queue.BackoffBase,
		LowPriorityDelay: cfg.Queue.LowPriorityDelay,
	}, logger)

	// ---- AI providers ----
	var providers []adapter.AIProvider
	if cfg.AI.OpenAIKey != "" {
		p, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers = append(providers, p)
		logger.Info().Msg("AI provider: OpenAI")
	}
	if cfg.AI.GeminiKey != "" {
		p, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers = append(providers, p)
		logger.Info().Msg("AI provider: Gemini")
	}
	if cfg.AI.CompatKey != "" {
		p, err := aiAdapters.NewCompatAdapter(cfg.AI.CompatKey, cfg.AI.CompatBaseURL, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("compat adapter")
		}
		providers = append(providers, p)
		logger.Info().Str("base_url", cfg.AI.CompatBaseURL).Msg("AI provider: OpenAI-compatible gateway")
	}
	if len(providers) == 0 {
		logger.Fatal().Msg("no AI provider configured")
	}
	gateway := aiAdapters.NewRegistry(cfg.AI.DefaultProvider, providers, cfg.AI.Models, cfg.AI.MaxOutputTokens, logger)

	// ---- Workspace + VCS ----
	gh := vcs.NewGitHubClient(cfg.GitHub.Token, cfg.GitHub.BotName, cfg.GitHub.BotEmail, logger)
	wsMgr := workspace.NewManager(cfg.Workspace.Root, gh, cfg.GitHub.Token,
		cfg.Workspace.CloneTimeout, cfg.Workspace.MaxContextFiles, int64(cfg.Workspace.MaxContextBytes))

	// ---- Use cases ----
	creditUC := usecase.NewCreditUseCase(txm, credits, pricing, gateway, logger)
	resultUC := usecase.NewResultUseCase(results, gh, cfg.GitHub.BranchPrefix, logger)
	taskUC := usecase.NewTaskUseCase(tasks, results, creditUC, q, progress, submitLock, logger)

	// ---- Dispatcher + pool ----
	pool := worker.NewPool(cfg.Workers.Count, logger)
	pool.Start(ctx)
	defer pool.Stop()

	dispatcher := worker.NewDispatcher(q, tasks, progress, creditUC, resultUC, gateway, wsMgr,
		cfg.Workers.PollInterval, cfg.Workers.CleanupDelay, logger)
	go dispatcher.Start(ctx, pool)

	// ---- Reaper ----
	reaper := sched.NewReaper(cfg.Workers.HeartbeatTimeout/2, cfg.Workers.HeartbeatTimeout, q, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- Ops HTTP server ----
	ops := web.NewServer(q, taskUC, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Ops.Port), Handler: ops.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("ops server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
