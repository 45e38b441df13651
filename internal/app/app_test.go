package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"wisgen/internal/config"
	"wisgen/internal/model"
	"wisgen/internal/runlock"
	"wisgen/pkg/llm"

	"github.com/go-playground/assert/v2"
)

func testConfig(t *testing.T) *config.Config {
	root := t.TempDir()
	cfg := config.Default()
	cfg.WorkspaceRoot = root
	cfg.PullScript = filepath.Join(root, "main.py")
	cfg.ManifestPath = filepath.Join(root, "data", "manifest.db")
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.IngestModel = cfg.LLM.Model
	return cfg
}

func TestNew_LocalStack(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	assert.Equal(t, nil, err)
	defer a.Close()

	_, isLocal := a.Locker.(*runlock.Local)
	assert.Equal(t, true, isLocal)

	batch := model.NewBatch(model.BatchKindPull)
	batch.Finish(model.BatchStatusCompleted, "")
	assert.Equal(t, nil, a.Batches.SaveBatch(context.Background(), batch))

	total, err := a.Batches.GetBatchTotal(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, total)
}

func TestNew_RunLockDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunLock = false

	a, err := New(context.Background(), cfg)
	assert.Equal(t, nil, err)
	defer a.Close()

	_, isNoop := a.Locker.(runlock.Noop)
	assert.Equal(t, true, isNoop)
}

func TestNew_MissingAPIKeyFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = ""

	a, err := New(context.Background(), cfg)
	assert.Equal(t, nil, err)
	defer a.Close()

	out, err := a.Transformer.Transform(context.Background(), "<p>Weekly roundup</p>", "")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, out.Fallback)
	assert.Equal(t, true, strings.Contains(out.Content, "Weekly roundup"))

	_, err = a.Transformer.Strict().Transform(context.Background(), "<p>Weekly roundup</p>", "")
	assert.Equal(t, true, errors.Is(err, llm.ErrNoAPIKey))
}
