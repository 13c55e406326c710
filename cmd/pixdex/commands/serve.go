package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/pixdex/internal/transport/chi"
	"github.com/kailas-cloud/pixdex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server.

Routes:
  POST /api/search/retrieve   ranked images, plus an answer when completion is enabled
  GET  /api/search?q=&k=      ranked images
  POST /api/upload-image      multipart field "file"
  GET  /api/images/{id}       stored image metadata
  POST /api/indexes/ensure    schedule a background ANN index build
  GET  /health, /metrics`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return a.serve()
	},
}

func (a *app) serve() error {
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting pixdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", envName),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	if *cfg.Index.AutoEnsure && a.indexes.EnsureIndexes() {
		logger.Info("ANN index build scheduled")
	}

	svc := chiTransport.Services{
		Retrieval: a.retrieval,
		Answer:    a.answer,
		Items:     a.items,
		Indexes:   a.indexes,
		Health:    a.health,
	}
	// Assign only when configured: a typed nil would defeat the nil check.
	if a.ingest != nil {
		svc.Ingest = a.ingest
	}
	server := chiTransport.NewServer(svc, chiTransport.Options{
		DefaultK:       cfg.Retrieval.DefaultK,
		MaxK:           cfg.Retrieval.MaxK,
		MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
	}, logger.Named("http"))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
