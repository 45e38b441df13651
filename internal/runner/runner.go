package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindOK         Kind = "ok"
	KindFailed     Kind = "failed"
	KindSpawnError Kind = "spawn_error"
	KindTimedOut   Kind = "timed_out"
	KindCanceled   Kind = "canceled"
)

const defaultWaitDelay = 2 * time.Second

// Command describes one external process invocation. Args are passed to the
// process as a discrete vector, never through a shell.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // KEY=VALUE entries appended to the current environment
	Stdin   io.Reader
	Timeout time.Duration // zero waits indefinitely
}

// Result is the single settled outcome of a Command.
type Result struct {
	Kind     Kind
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
	Duration time.Duration
}

func (r *Result) OK() bool {
	return r != nil && r.Kind == KindOK
}

// Message returns the best human readable reason for a non-ok result.
func (r *Result) Message() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return "Process exited with code " + strconv.Itoa(r.ExitCode)
}

type Runner interface {
	Run(ctx context.Context, cmd Command) *Result
}

// Exec runs commands as child processes of the current process.
type Exec struct {
	WaitDelay time.Duration
}

func New() *Exec {
	return &Exec{WaitDelay: defaultWaitDelay}
}

// Run starts the command and blocks until it exits, the timeout elapses or ctx
// is canceled. Whichever happens first settles the result; on timeout or
// cancellation the child is killed and reaped before Run returns.
func (e *Exec) Run(ctx context.Context, c Command) *Result {
	start := time.Now()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = e.WaitDelay

	logger := slog.With("command", c.Name)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, &streamLogger{logger: logger, stream: "stdout"})
	cmd.Stderr = io.MultiWriter(&stderr, &streamLogger{logger: logger, stream: "stderr"})

	if err := cmd.Start(); err != nil {
		logger.Error("failed to start process", "error", err)
		return &Result{
			Kind:     KindSpawnError,
			ExitCode: -1,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var res Result
	select {
	case err := <-done:
		res = exitResult(cmd, err)
	case <-ctx.Done():
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Warn("failed to kill process", "pid", cmd.Process.Pid, "error", err)
		}
		<-done

		res.Kind = KindCanceled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Kind = KindTimedOut
		}
		res.ExitCode = -1
		res.Err = ctx.Err()
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Duration = time.Since(start)

	logger.Info("process settled", "kind", res.Kind, "exit_code", res.ExitCode, "duration", res.Duration)
	return &res
}

func exitResult(cmd *exec.Cmd, err error) Result {
	if err == nil {
		return Result{Kind: KindOK}
	}

	// Pipes held open by a grandchild past WaitDelay do not change the exit status.
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		return Result{Kind: KindOK}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Kind: KindFailed, ExitCode: exitErr.ExitCode(), Err: err}
	}

	return Result{Kind: KindFailed, ExitCode: -1, Err: err}
}

type streamLogger struct {
	logger *slog.Logger
	stream string
}

func (s *streamLogger) Write(p []byte) (int, error) {
	if msg := strings.TrimRight(string(p), "\n"); msg != "" {
		s.logger.Debug("process output", "stream", s.stream, "output", msg)
	}
	return len(p), nil
}
