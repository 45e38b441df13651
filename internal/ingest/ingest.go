package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"wisgen/internal/config"
	"wisgen/internal/digest"
	"wisgen/internal/model"
	"wisgen/internal/runlock"
	"wisgen/internal/runner"
	"wisgen/internal/workspace"
)

var (
	ErrBusy           = errors.New("a newsletter pull is already running")
	ErrScriptNotFound = errors.New("Python script not found")
	ErrPartial        = errors.New("Newsletters pulled but processing failed")
)

// ScriptError reports a pull script that did not exit cleanly.
type ScriptError struct {
	Path   string
	Result *runner.Result
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("pull script %s: %s", e.Result.Kind, e.Result.Message())
}

// Transformer is the digest step applied to each pulled newsletter.
type Transformer interface {
	Transform(ctx context.Context, raw, model string) (*digest.Output, error)
}

// BatchRecorder persists the manifest of a run.
type BatchRecorder interface {
	SaveBatch(ctx context.Context, batch *model.Batch) error
}

type Options struct {
	Python      string
	Script      string
	Timeout     time.Duration
	Model       string
	BatchPolicy string
}

type Service struct {
	layout      *workspace.Layout
	runner      runner.Runner
	transformer Transformer
	locker      runlock.Locker
	recorder    BatchRecorder
	opts        Options
}

func NewService(layout *workspace.Layout, r runner.Runner, t Transformer, locker runlock.Locker, recorder BatchRecorder, opts Options) *Service {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.BatchPolicy == "" {
		opts.BatchPolicy = config.BatchContinue
	}
	if locker == nil {
		locker = runlock.Noop{}
	}
	return &Service{
		layout:      layout,
		runner:      r,
		transformer: t,
		locker:      locker,
		recorder:    recorder,
		opts:        opts,
	}
}

type PullResult struct {
	BatchID string
	Output  string
	Results []model.ProcessResult
}

type ProcessOptions struct {
	Force bool     // re-process files whose digest already exists
	Model string   // overrides the configured ingestion model
	Files []string // limits the run to these newsletters
}

func (s *Service) ScriptPath() string {
	return s.opts.Script
}

// Pull runs the pull script and then digests every newsletter without a
// processed counterpart.
func (s *Service) Pull(ctx context.Context) (*PullResult, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	batch := model.NewBatch(model.BatchKindPull)
	defer s.record(batch)

	if _, err := os.Stat(s.opts.Script); err != nil {
		slog.Error("Python script not found", "path", s.opts.Script)
		batch.Finish(model.BatchStatusFailed, ErrScriptNotFound.Error())
		return nil, ErrScriptNotFound
	}

	slog.Info("Running pull script", "path", s.opts.Script)
	res := s.runner.Run(ctx, runner.Command{
		Name:    s.opts.Python,
		Args:    []string{s.opts.Script},
		Dir:     s.layout.Root,
		Env:     []string{"PYTHONUNBUFFERED=1"},
		Timeout: s.opts.Timeout,
	})
	if !res.OK() {
		scriptErr := &ScriptError{Path: s.opts.Script, Result: res}
		batch.Finish(model.BatchStatusFailed, scriptErr.Error())
		return nil, scriptErr
	}

	result := &PullResult{BatchID: batch.ID, Output: res.Stdout}
	result.Results, err = s.process(ctx, ProcessOptions{}, batch)
	return result, err
}

// ProcessAll digests already pulled newsletters without running the pull script.
func (s *Service) ProcessAll(ctx context.Context, opts ProcessOptions) ([]model.ProcessResult, error) {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	batch := model.NewBatch(model.BatchKindPull)
	defer s.record(batch)

	return s.process(ctx, opts, batch)
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	unlock, ok, err := s.locker.TryLock(ctx, runlock.KeyPull)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return unlock, nil
}

func (s *Service) process(ctx context.Context, opts ProcessOptions, batch *model.Batch) ([]model.ProcessResult, error) {
	if err := s.layout.EnsureDirs(); err != nil {
		batch.Finish(model.BatchStatusFailed, err.Error())
		return nil, err
	}

	files, err := s.layout.ListNewsletters()
	if err != nil {
		batch.Finish(model.BatchStatusFailed, err.Error())
		return nil, fmt.Errorf("failed to list newsletters: %w", err)
	}
	if len(opts.Files) > 0 {
		files, err = selectFiles(files, opts.Files)
		if err != nil {
			batch.Finish(model.BatchStatusFailed, err.Error())
			return nil, err
		}
	}

	modelName := s.opts.Model
	if opts.Model != "" {
		modelName = opts.Model
	}

	slog.Info("Processing newsletters", "count", len(files), "model", modelName)

	results := make([]model.ProcessResult, 0, len(files))
	var firstErr error

	for _, file := range files {
		if ctx.Err() != nil {
			firstErr = ctx.Err()
			break
		}

		r := s.processOne(ctx, file, modelName, opts.Force)
		results = append(results, r)

		if r.Status == model.StatusFailed && firstErr == nil {
			firstErr = errors.New(r.Error)
			if s.opts.BatchPolicy == config.BatchAbort {
				break
			}
		}
	}

	batch.Entries = entriesFrom(batch.ID, results)

	if firstErr != nil {
		status := model.BatchStatusFailed
		for _, r := range results {
			if r.Status != model.StatusFailed {
				status = model.BatchStatusPartial
				break
			}
		}
		batch.Finish(status, firstErr.Error())
		return results, fmt.Errorf("%w: %v", ErrPartial, firstErr)
	}

	batch.Finish(model.BatchStatusCompleted, fmt.Sprintf("%d newsletters handled", len(results)))
	return results, nil
}

func (s *Service) processOne(ctx context.Context, file, modelName string, force bool) model.ProcessResult {
	r := model.ProcessResult{Filename: file, ProcessedFilename: model.ProcessedName(file)}

	if !force && s.layout.HasProcessed(file) {
		slog.Debug("Skipping already processed newsletter", "filename", file)
		r.Status = model.StatusSkipped
		return r
	}

	raw, err := s.layout.ReadRaw(file)
	if err != nil {
		return failed(r, err)
	}

	out, err := s.transformer.Transform(ctx, raw, modelName)
	if err != nil {
		return failed(r, err)
	}

	if _, err := s.layout.WriteProcessed(file, out.Content); err != nil {
		return failed(r, err)
	}

	slog.Info("Processed newsletter", "filename", file, "fallback", out.Fallback)
	r.Status = model.StatusProcessed
	r.Fallback = out.Fallback
	return r
}

func failed(r model.ProcessResult, err error) model.ProcessResult {
	slog.Error("Failed to process newsletter", "filename", r.Filename, "error", err)
	r.Status = model.StatusFailed
	r.Error = err.Error()
	return r
}

func selectFiles(all, wanted []string) ([]string, error) {
	present := make(map[string]bool, len(all))
	for _, f := range all {
		present[f] = true
	}

	var selected []string
	for _, f := range wanted {
		if !present[f] {
			return nil, fmt.Errorf("%w: %s", workspace.ErrNotFound, f)
		}
		selected = append(selected, f)
	}
	return selected, nil
}

func entriesFrom(batchID string, results []model.ProcessResult) []model.BatchEntry {
	entries := make([]model.BatchEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, model.BatchEntry{
			BatchID:           batchID,
			Filename:          r.Filename,
			ProcessedFilename: r.ProcessedFilename,
			Status:            r.Status,
			Error:             r.Error,
			Fallback:          r.Fallback,
		})
	}
	return entries
}

func (s *Service) record(batch *model.Batch) {
	if s.recorder == nil {
		return
	}
	if batch.FinishedAt.IsZero() {
		batch.Finish(model.BatchStatusFailed, "interrupted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.recorder.SaveBatch(ctx, batch); err != nil {
		slog.Error("Failed to record batch", "batch_id", batch.ID, "error", err)
	}
}
