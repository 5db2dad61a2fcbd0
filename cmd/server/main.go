package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/poextract/internal/api"
	"github.com/dgallion1/poextract/internal/config"
	"github.com/dgallion1/poextract/internal/extract"
	"github.com/dgallion1/poextract/internal/pipeline"
	"github.com/dgallion1/poextract/internal/raster"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	model := extract.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, cfg.RequestTimeout)
	renderer := raster.NewRenderer(cfg.RasterDPI, cfg.MaxPages)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, renderer, model, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, model, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain in-flight handlers before closing the run queue, so a
		// late submit cannot hit a closed channel.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		model.Close()
	}()

	log.Info("starting poextract", "port", cfg.Port, "model", cfg.AnthropicModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
