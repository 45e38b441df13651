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
	"wisgen/internal/insights"
	"wisgen/internal/logging"

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

	result, err := a.Insights.Analyze(ctx)
	switch {
	case errors.Is(err, insights.ErrNoInsightsDir):
		slog.Info("no daily insights to analyze, exiting", "path", a.Layout.InsightsDaily)
		return
	case errors.Is(err, insights.ErrBusy):
		slog.Warn("another analysis is running, exiting")
		return
	case err != nil:
		slog.Error("analysis failed", "error", err)
		a.Close()
		os.Exit(1)
	}

	slog.Info("analysis finished", "batch_id", result.BatchID, "report", result.ReportFile)
}
