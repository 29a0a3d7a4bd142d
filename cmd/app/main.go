package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"reelforge/internal/config"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/domain/ports/repository"
	"reelforge/internal/infra/adapters/imagegen"
	"reelforge/internal/infra/api"
	"reelforge/internal/infra/db/memory"
	pg "reelforge/internal/infra/db/postgres"
	"reelforge/internal/infra/logging"
	"reelforge/internal/infra/metrics"
	red "reelforge/internal/infra/redis"
	"reelforge/internal/infra/sched"
	"reelforge/internal/infra/storage"
	"reelforge/internal/infra/video"
	"reelforge/internal/infra/worker"
	"reelforge/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", config.DefaultPath, "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted prompts)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Repositories (Postgres when configured, memory otherwise) ----
	renderJobs, genLogs, pool := openRepositories(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	// ---- Image providers (ordered) ----
	hc := imagegen.NewHTTPClient(cfg.AI.RequestTimeout)
	providers := imagegen.BuildProviders(&cfg.AI, hc)
	chain := imagegen.NewChain(logger, providers...)
	logger.Info().Strs("order", cfg.AI.Order).Strs("available", imagegen.Available(providers)).Msg("image providers ready")

	// ---- Object storage ----
	var objects adapter.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		s, err := storage.NewMinioStorage(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("storage")
		}
		if err := s.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("bucket check failed; uploads will retry")
		}
		objects = s
	}

	// ---- Use cases ----
	genUC := usecase.NewGenerateUseCase(chain, genLogs, cfg.AI.EnhancePrompt, cfg.Runtime.Dev, logger)
	healthUC := usecase.NewHealthUseCase(chain.Providers(), genLogs, logger)
	assembler := video.NewAssembler(cfg.Render, video.ExecRunner{}, logger)
	renderUC := usecase.NewRenderUseCase(renderJobs, assembler, objects, usecase.RenderOptions{
		InputDir:  cfg.Render.InputDir,
		OutputDir: cfg.Render.OutputDir,
		Timeout:   cfg.Render.JobTimeout,
		Heartbeat: cfg.Render.StaleAfter / 3,
	}, logger)

	// ---- Render workers ----
	workers := worker.NewPool(cfg.Render.Workers, logger)
	workers.Start(ctx)
	defer workers.Stop()
	processor := worker.NewRenderJobProcessor(renderJobs, renderUC, logger)
	renderUC.SetKicker(processor)
	go processor.Start(ctx, workers)
	reaper := sched.NewStaleJobReaper(time.Minute, cfg.Render.StaleAfter, renderJobs, processor.Kick, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- HTTP ----
	srv := api.NewServer(genUC, healthUC, renderUC, logger)
	if cfg.Redis.URL != "" && cfg.Redis.RateLimit > 0 {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		srv.WithLimiter(red.NewRateLimiter(rc, cfg.Redis.RateLimit, cfg.Redis.Window), red.ClientKey)
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.RenderJobRepository, repository.GenerationLogRepository, *pgxpool.Pool) {
	if cfg.Database.URL == "" {
		logger.Info().Msg("database.url not set; using in-memory repositories")
		return memory.NewRenderJobRepo(), memory.NewGenerationLogRepo(0), nil
	}
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	n, err := pg.Migrate(pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	logger.Info().Int("applied", n).Msg("migrations applied")
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	tm := pg.NewTxManager(pool)
	return pg.NewRenderJobRepo(pool, tm), pg.NewGenerationLogRepo(pool), pool
}
