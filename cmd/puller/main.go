package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wisgen/internal/app"
	"wisgen/internal/config"
	"wisgen/internal/ingest"
	"wisgen/internal/logging"
	"wisgen/internal/model"

	"github.com/joho/godotenv"
)

func main() {

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("error setting up logging: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("error starting services: %v", err)
	}
	defer a.Close()

	result, err := a.Ingest.Pull(ctx)
	if result != nil {
		var processed, skipped, failed int
		for _, r := range result.Results {
			switch r.Status {
			case model.StatusProcessed:
				processed++
			case model.StatusSkipped:
				skipped++
			case model.StatusFailed:
				failed++
			}
		}
		slog.Info("pull finished",
			"batch_id", result.BatchID,
			"processed", processed,
			"skipped", skipped,
			"failed", failed,
		)
	}

	if err != nil {
		if errors.Is(err, ingest.ErrBusy) {
			slog.Warn("another pull is running, exiting")
			return
		}
		slog.Error("pull failed", "error", err)
		a.Close()
		os.Exit(1)
	}
}
