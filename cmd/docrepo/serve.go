package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-document-repository/api"
	"github.com/gcbaptista/go-document-repository/config"
	"github.com/gcbaptista/go-document-repository/internal/analytics"
	"github.com/gcbaptista/go-document-repository/internal/export"
	"github.com/gcbaptista/go-document-repository/internal/extract"
	"github.com/gcbaptista/go-document-repository/internal/inbox"
	"github.com/gcbaptista/go-document-repository/internal/jobs"
	"github.com/gcbaptista/go-document-repository/internal/similarity"
	"github.com/gcbaptista/go-document-repository/internal/upload"
	"github.com/gcbaptista/go-document-repository/internal/versioning"
	"github.com/gcbaptista/go-document-repository/services"
	"github.com/gcbaptista/go-document-repository/store"
	"github.com/gcbaptista/go-document-repository/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides config)")
	return cmd
}

// openRepository opens the configured storage backend.
func openRepository(cfg *config.AppConfig, logger *slog.Logger) (services.DocumentRepository, error) {
	switch cfg.Storage.Driver {
	case "memory":
		s, err := store.OpenDocumentStore(filepath.Join(cfg.Storage.DataDir, store.SnapshotFile), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := sqlite.NewStore(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err)
		}
	}()

	extractor, err := extract.New(cfg.Extractor.Mode, logger)
	if err != nil {
		return err
	}
	blobs, err := upload.NewBlobStore(cfg.Storage.BlobDir)
	if err != nil {
		return err
	}
	tracker := analytics.NewService(filepath.Join(cfg.Storage.DataDir, analytics.DataFile), logger)

	uploads, err := upload.NewService(upload.Dependencies{
		Repository: repo,
		Extractor:  extractor,
		Engine:     versioning.NewEngine(cfg.Versioning),
		Blobs:      blobs,
		Analytics:  tracker,
		Config:     cfg.Upload,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	manager := jobs.NewManager(cfg.Jobs.MaxWorkers, logger)
	manager.Start()
	defer manager.Stop()

	if cfg.Inbox.Enabled {
		watcher := inbox.NewWatcher(cfg.Inbox.Dir, cfg.Inbox.Debounce, uploads, manager, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("inbox watcher stopped", "error", err)
			}
		}()
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), api.CORSMiddleware())
	api.SetupRoutes(router, api.Dependencies{
		Uploads:   uploads,
		Jobs:      manager,
		Analytics: tracker,
		Exporter:  export.NewService(repo, logger),
		Similarity: similarity.NewCalculator(similarity.Weights{
			Cosine:  cfg.Versioning.CosineWeight,
			Jaccard: cfg.Versioning.JaccardWeight,
		}),
		MaxUploadBytes: cfg.Server.MaxBodyBytes,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"port", cfg.Server.Port,
			"storage", cfg.Storage.Driver,
			"data_dir", cfg.Storage.DataDir,
			"extractor", extractor.Name(),
			"threshold", cfg.Versioning.Threshold)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
