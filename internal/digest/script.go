package digest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"wisgen/internal/config"
	"wisgen/internal/runner"
	"wisgen/pkg/llm"
)

// ScriptSimplifier delegates simplification to an external command. The
// prompt and the newsletter are handed over as temp file paths so payload size
// never hits argument length limits. The command prints the digest to stdout.
//
// Invocation: <command...> <prompt file> <html file> [model]
type ScriptSimplifier struct {
	runner  runner.Runner
	command []string
	dir     string
	prompt  string
	timeout time.Duration
}

func NewScriptSimplifier(r runner.Runner, command []string, dir, prompt string, timeout time.Duration) (*ScriptSimplifier, error) {
	if len(command) == 0 {
		return nil, errors.New("script provider needs llm.script to name a command")
	}
	if prompt == "" {
		prompt = llm.DigestPrompt
	}
	return &ScriptSimplifier{runner: r, command: command, dir: dir, prompt: prompt, timeout: timeout}, nil
}

func (s *ScriptSimplifier) Simplify(ctx context.Context, input llm.SimplifyInput) (*llm.SimplifyResult, error) {
	promptFile, err := writeTemp("wisgen-prompt-*.txt", s.prompt)
	if err != nil {
		return nil, err
	}
	defer os.Remove(promptFile)

	htmlFile, err := writeTemp("wisgen-newsletter-*.html", input.HTML)
	if err != nil {
		return nil, err
	}
	defer os.Remove(htmlFile)

	args := append([]string{}, s.command[1:]...)
	args = append(args, promptFile, htmlFile)
	if input.Model != "" {
		args = append(args, input.Model)
	}

	res := s.runner.Run(ctx, runner.Command{
		Name:    s.command[0],
		Args:    args,
		Dir:     s.dir,
		Env:     []string{"PYTHONUNBUFFERED=1"},
		Timeout: s.timeout,
	})
	if !res.OK() {
		return nil, fmt.Errorf("simplify script %s: %s", res.Kind, res.Message())
	}

	content := strings.TrimSpace(res.Stdout)
	if content == "" {
		return nil, errors.New("simplify script printed nothing")
	}

	return &llm.SimplifyResult{Content: content, ModelUsed: input.Model}, nil
}

func writeTemp(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// NewSimplifier builds the Simplifier selected by cfg.
func NewSimplifier(cfg config.LLMConfig, r runner.Runner, workdir string) (llm.Simplifier, error) {
	prompt, err := llm.LoadPrompt(cfg.PromptPath)
	if err != nil {
		return nil, err
	}

	if cfg.Provider == "script" {
		return NewScriptSimplifier(r, cfg.Script, workdir, prompt, 0)
	}

	return llm.New(llm.Options{
		Provider:  cfg.Provider,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Prompt:    prompt,
	})
}
