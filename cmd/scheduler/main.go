package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisgen/internal/app"
	"wisgen/internal/config"
	"wisgen/internal/ingest"
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

	at, err := config.ParseClock(cfg.Schedule.DailyAt)
	if err != nil {
		log.Fatalf("error parsing schedule: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("error starting services: %v", err)
	}
	defer a.Close()

	slog.Info("scheduler started", "daily_at", cfg.Schedule.DailyAt)
	runPull(ctx, a)

	for {
		next := nextRun(time.Now(), at)
		slog.Info("next pull scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("scheduler stopped")
			return
		case <-timer.C:
			runPull(ctx, a)
		}
	}
}

func runPull(ctx context.Context, a *app.App) {
	result, err := a.Ingest.Pull(ctx)
	switch {
	case errors.Is(err, ingest.ErrBusy):
		slog.Warn("pull already running, skipping this run")
	case err != nil:
		slog.Error("scheduled pull failed", "error", err)
	default:
		slog.Info("scheduled pull finished", "batch_id", result.BatchID, "files", len(result.Results))
	}
}

// nextRun returns the first local time at offset after midnight that is
// strictly after now.
func nextRun(now time.Time, offset time.Duration) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := midnight.Add(offset)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()).Add(offset)
	}
	return next
}
