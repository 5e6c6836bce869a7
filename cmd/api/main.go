package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/stackcanvas/engine/internal/api"
	"github.com/stackcanvas/engine/internal/api/handlers"
	"github.com/stackcanvas/engine/internal/catalog"
	"github.com/stackcanvas/engine/internal/preview"
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

	log.Info("starting stackcanvas engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	cat, err := catalog.Load()
	if err != nil {
		log.Fatal("failed to load service catalog", zap.Error(err))
	}
	log.Info("service catalog loaded", zap.Int("services", len(cat.Services())))

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	designRepo := repository.NewDesignRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer asynqClient.Close()

	designSvc := services.NewDesignService(cat, designRepo, revisionRepo)
	exportSvc := services.NewExportService(cat, designRepo, revisionRepo, artifactRepo, asynqClient)

	var previewer preview.Previewer = preview.Disabled{}
	if cfg.PreviewEnabled {
		workingDir := cfg.WorkingDir
		if workingDir == "" {
			workingDir = os.TempDir()
		} else if err := os.MkdirAll(workingDir, 0o755); err != nil {
			log.Fatal("failed to create working dir", zap.Error(err))
		}
		previewer = preview.NewTerraform(workingDir)
		log.Info("terraform preview enabled", zap.String("working_dir", workingDir))
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	router := api.NewRouter(api.Dependencies{
		CatalogHandler:  handlers.NewCatalogHandler(cat),
		DesignsHandler:  handlers.NewDesignsHandler(designSvc, validate),
		SessionsHandler: handlers.NewSessionsHandler(designSvc, exportSvc, validate),
		ExportsHandler:  handlers.NewExportsHandler(exportSvc, validate),
		PreviewHandler:  handlers.NewPreviewHandler(designSvc, exportSvc, previewer),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Sweep abandoned design sessions in the background.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := designSvc.SweepIdleSessions(cfg.SessionIdleTimeout); n > 0 {
					log.Info("swept idle sessions", zap.Int("count", n))
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
