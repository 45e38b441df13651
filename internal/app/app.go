package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wisgen/db"
	"wisgen/internal/config"
	"wisgen/internal/digest"
	"wisgen/internal/ingest"
	"wisgen/internal/insights"
	"wisgen/internal/repository"
	"wisgen/internal/runlock"
	"wisgen/internal/runner"
	"wisgen/internal/workspace"
	"wisgen/pkg/llm"
)

// App holds the services every command is built from.
type App struct {
	Config      *config.Config
	Layout      *workspace.Layout
	Runner      runner.Runner
	Batches     repository.BatchStore
	Locker      runlock.Locker
	Transformer *digest.Transformer
	Ingest      *ingest.Service
	Insights    *insights.Service

	closers []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Layout: workspace.New(cfg.WorkspaceRoot),
		Runner: runner.New(),
	}

	if err := a.openManifest(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openLocker(); err != nil {
		a.Close()
		return nil, err
	}

	simplifier, err := digest.NewSimplifier(cfg.LLM, a.Runner, cfg.WorkspaceRoot)
	if errors.Is(err, llm.ErrNoAPIKey) {
		slog.Warn("no LLM API key configured, digests will use the fallback", "provider", cfg.LLM.Provider)
		simplifier, err = llm.Unavailable(err), nil
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build simplifier: %w", err)
	}
	a.Transformer = digest.NewTransformer(simplifier, cfg.Transform.Policy)

	a.Ingest = ingest.NewService(a.Layout, a.Runner, a.Transformer, a.Locker, a.Batches, ingest.Options{
		Python:      cfg.Python,
		Script:      cfg.PullScript,
		Timeout:     cfg.PullTimeout,
		Model:       cfg.LLM.IngestModel,
		BatchPolicy: cfg.Transform.BatchPolicy,
	})

	a.Insights = insights.NewService(a.Layout, a.Runner, a.Locker, a.Batches, cfg.Python, cfg.AnalyzeTimeout)

	return a, nil
}

// openManifest uses Postgres when a database URL is configured and a local
// SQLite file otherwise.
func (a *App) openManifest(ctx context.Context) error {
	if a.Config.DatabaseURL != "" {
		if err := db.Connect(a.Config.DatabaseURL); err != nil {
			return fmt.Errorf("error connecting to DB: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := repository.NewBatchRepository(db.DB)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		a.Batches = repo
		slog.Info("manifest store ready", "driver", "postgres")
		return nil
	}

	repo, err := repository.OpenLocalBatchRepository(a.Config.ManifestPath)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() {
		if err := repo.Close(); err != nil {
			slog.Warn("failed to close manifest", "error", err)
		}
	})
	a.Batches = repo
	slog.Info("manifest store ready", "driver", "sqlite", "path", a.Config.ManifestPath)
	return nil
}

func (a *App) openLocker() error {
	switch {
	case !a.Config.RunLock:
		slog.Warn("run lock disabled, concurrent runs are not guarded")
		a.Locker = runlock.Noop{}

	case a.Config.RedisURL != "":
		if err := db.ConnectRedis(a.Config.RedisURL); err != nil {
			return fmt.Errorf("error connecting to Redis: %w", err)
		}
		a.closers = append(a.closers, db.CloseRedis)
		a.Locker = db.NewRedisLocker(db.Redis, a.Config.LockTTL)
		slog.Info("run lock ready", "backend", "redis")

	default:
		a.Locker = runlock.NewLocal()
		slog.Info("run lock ready", "backend", "local")
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
