package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/queue/tasks"
	"github.com/stackcanvas/engine/internal/repository"
	"github.com/stackcanvas/engine/internal/services"
	"github.com/stackcanvas/engine/pkg/config"
	"github.com/stackcanvas/engine/pkg/database"
	"github.com/stackcanvas/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	cat, err := catalog.Load()
	if err != nil {
		log.Fatal("failed to load service catalog", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	designRepo := repository.NewDesignRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	// The worker only builds artifacts, it never enqueues, so no asynq client.
	exportSvc := services.NewExportService(cat, designRepo, revisionRepo, artifactRepo, nil)

	handler := tasks.NewExportTaskHandler(exportSvc)

	mux := asynq.NewServeMux()
	mux.HandleFunc("export:build", handler.HandleExportBuild)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Let in-flight builds finish.
	srv.Shutdown()
}
