package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/config"
	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/handlers"
	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/logic"
	"github.com/matchpulse/predict-api/internal/ml"
	"github.com/matchpulse/predict-api/internal/provider"
	"github.com/matchpulse/predict-api/internal/scheduler"
	"github.com/matchpulse/predict-api/internal/storage"
	"github.com/matchpulse/predict-api/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("postgres connect failed", "error", err)
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		sugar.Fatalw("postgres ping failed", "error", err)
	}
	if err := storage.Migrate(ctx, pg); err != nil {
		sugar.Fatalw("schema migration failed", "error", err)
	}
	sugar.Infow("postgres connected")

	// Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("invalid redis url", "error", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sugar.Fatalw("redis ping failed", "error", err)
	}
	sugar.Infow("redis connected")

	// Provider clients
	client := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey,
		cfg.ProviderTimeout, cfg.ProviderCacheTTL, rdb, sugar)
	fantasyClient := provider.NewFantasyClient(cfg.FantasyBaseURL,
		cfg.ProviderTimeout, cfg.FantasyCacheTTL, rdb, sugar)

	// Model artifacts
	store := ml.NewStore(cfg.ArtifactDir, features.SchemaVersion, sugar)

	// Feature-build pipeline
	builder := features.NewBuilder(pg, cfg.RollingWindow, cfg.RankDeltaWindow, cfg.HeadToHeadLimit)
	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:   cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Builder:       builder,
		Logger:        logger,
	})
	pool.Start(ctx)

	// Services
	syncService := ingest.NewService(client, pg, pool, rdb, sugar)
	matchService := logic.NewMatchService(pg)
	standingsService := logic.NewStandingsService(pg)
	predictionService := logic.NewPredictionService(pg, matchService, builder, store, sugar)
	analysisService := logic.NewAnalysisService(pg, store, logic.AnalysisConfig{
		Competition:      cfg.CompetitionCode,
		TrainSeasons:     cfg.TrainSeasons(),
		ValidationSeason: cfg.ValidationSeason(),
		MinTrainSamples:  cfg.MinTrainSamples,
		ErrorWeightCap:   cfg.ErrorWeightCap,
		PromoteTolerance: cfg.PromoteTolerance,
		AutoRetrainFloor: cfg.AutoRetrainFloor,
		RandomSeed:       cfg.RandomSeed,
	}, sugar)
	fantasyService := logic.NewFantasyService(fantasyClient)

	// Background jobs
	sched := scheduler.New(scheduler.Config{
		IngestCron:  cfg.IngestCron,
		AnalyzeCron: cfg.AnalyzeCron,
		Competition: cfg.CompetitionCode,
		Seasons:     cfg.Seasons,
	}, syncService, analysisService, sugar)
	if err := sched.Start(); err != nil {
		sugar.Fatalw("scheduler start failed", "error", err)
	}

	// HTTP
	handler := handlers.New(handlers.Config{
		Postgres:    pg,
		Redis:       rdb,
		Queue:       pool,
		Logger:      logger,
		Competition: cfg.CompetitionCode,
		Seasons:     cfg.Seasons,
		Matches:     matchService,
		Standings:   standingsService,
		Prediction:  predictionService,
		Analysis:    analysisService,
		Fantasy:     fantasyService,
		Sync:        syncService,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handlers.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
	sched.Stop()
	pool.Stop()
	sugar.Infow("shutdown complete")
}

func newLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
