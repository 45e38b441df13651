package insights

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strings"
	"time"

	"wisgen/internal/model"
	"wisgen/internal/render"
	"wisgen/internal/runlock"
	"wisgen/internal/runner"
	"wisgen/internal/workspace"
)

var (
	ErrBusy          = errors.New("an insights analysis is already running")
	ErrNoInsightsDir = errors.New("No insights directory found")
)

// analyzeScript is run with `python3 -c` from the workspace root.
const analyzeScript = `
import sys
try:
    from agents.insights_generator import analyze_insights_trends
    analyze_insights_trends()
    print("Analysis completed successfully")
    sys.exit(0)
except Exception as e:
    print(f"Error in Python script: {str(e)}", file=sys.stderr)
    sys.exit(1)
`

type ScriptError struct {
	Result *runner.Result
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("insights analysis %s: %s", e.Result.Kind, e.Result.Message())
}

type BatchRecorder interface {
	SaveBatch(ctx context.Context, batch *model.Batch) error
}

type RunResult struct {
	BatchID    string
	Output     string
	ReportFile string
}

type Service struct {
	layout   *workspace.Layout
	runner   runner.Runner
	locker   runlock.Locker
	recorder BatchRecorder
	python   string
	timeout  time.Duration
}

func NewService(layout *workspace.Layout, r runner.Runner, locker runlock.Locker, recorder BatchRecorder, python string, timeout time.Duration) *Service {
	if python == "" {
		python = "python3"
	}
	if locker == nil {
		locker = runlock.Noop{}
	}
	return &Service{
		layout:   layout,
		runner:   r,
		locker:   locker,
		recorder: recorder,
		python:   python,
		timeout:  timeout,
	}
}

// Analyze runs the trend analysis. The daily insights directory must exist.
func (s *Service) Analyze(ctx context.Context) (*RunResult, error) {
	info, err := os.Stat(s.layout.InsightsDaily)
	if err != nil || !info.IsDir() {
		slog.Error("Insights directory not found", "path", s.layout.InsightsDaily)
		return nil, ErrNoInsightsDir
	}
	return s.run(ctx)
}

// RunScript runs the same analysis without the directory precondition.
func (s *Service) RunScript(ctx context.Context) (*RunResult, error) {
	return s.run(ctx)
}

func (s *Service) run(ctx context.Context) (*RunResult, error) {
	unlock, ok, err := s.locker.TryLock(ctx, runlock.KeyAnalyze)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	defer unlock()

	batch := model.NewBatch(model.BatchKindAnalyze)
	defer s.record(batch)

	slog.Info("Running insights analysis", "timeout", s.timeout)
	res := s.runner.Run(ctx, runner.Command{
		Name:    s.python,
		Args:    []string{"-c", analyzeScript},
		Dir:     s.layout.Root,
		Env:     []string{"PYTHONUNBUFFERED=1"},
		Timeout: s.timeout,
	})
	if !res.OK() {
		scriptErr := &ScriptError{Result: res}
		batch.Finish(model.BatchStatusFailed, scriptErr.Error())
		return nil, scriptErr
	}

	out := &RunResult{BatchID: batch.ID, Output: res.Stdout}
	if name, err := workspace.LatestReport(s.layout.Insights, model.ReportPrefix, ""); err == nil {
		out.ReportFile = name
		batch.ReportFile = name
	}
	batch.Finish(model.BatchStatusCompleted, "Insights analysis generated successfully")
	return out, nil
}

// Latest returns the newest report of any format, untouched.
func (s *Service) Latest() (*model.Report, error) {
	name, err := workspace.LatestReport(s.layout.Insights, model.ReportPrefix, "")
	if err != nil {
		return nil, err
	}
	content, err := s.layout.ReadReport(name)
	if err != nil {
		return nil, err
	}
	return &model.Report{Filename: name, Content: content, Format: formatOf(name)}, nil
}

// LatestContent returns the newest HTML report, falling back to the newest
// Markdown report wrapped in a minimal HTML block. With format "markdown" the
// report is returned as Markdown instead.
func (s *Service) LatestContent(format string) (*model.Report, error) {
	name, err := workspace.LatestReport(s.layout.Insights, model.ReportPrefix, ".html")
	if errors.Is(err, workspace.ErrNoReport) {
		return s.latestMarkdown(format)
	}
	if err != nil {
		return nil, err
	}

	content, err := s.layout.ReadReport(name)
	if err != nil {
		return nil, err
	}

	if format == model.FormatMarkdown {
		markdown, err := render.ToMarkdown(content)
		if err != nil {
			return nil, err
		}
		return &model.Report{Filename: name, Content: markdown, Format: model.FormatMarkdown}, nil
	}
	return &model.Report{Filename: name, Content: content, Format: model.FormatHTML}, nil
}

func (s *Service) latestMarkdown(format string) (*model.Report, error) {
	name, err := workspace.LatestReport(s.layout.Insights, model.ReportPrefix, ".md")
	if err != nil {
		return nil, err
	}
	content, err := s.layout.ReadReport(name)
	if err != nil {
		return nil, err
	}

	if format != model.FormatMarkdown {
		content = WrapMarkdown(content)
	}
	return &model.Report{Filename: name, Content: content, Format: model.FormatMarkdown}, nil
}

// WrapMarkdown presents a Markdown report as preformatted HTML.
func WrapMarkdown(content string) string {
	return `<div>
  <h1>Insights Analysis</h1>
  <div style="white-space: pre-wrap;">` + html.EscapeString(content) + `</div>
</div>`
}

func formatOf(name string) string {
	if strings.HasSuffix(name, ".md") {
		return model.FormatMarkdown
	}
	return model.FormatHTML
}

func (s *Service) record(batch *model.Batch) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.recorder.SaveBatch(ctx, batch); err != nil {
		slog.Error("Failed to record batch", "batch_id", batch.ID, "error", err)
	}
}
