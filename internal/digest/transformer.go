package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"wisgen/internal/config"
	"wisgen/pkg/llm"
)

var ErrEmptyInput = errors.New("no HTML content provided")

type Output struct {
	Content   string
	ModelUsed string
	Fallback  bool
}

// Transformer turns raw newsletter HTML into a digest through a Simplifier and
// applies the configured failure policy.
type Transformer struct {
	simplifier llm.Simplifier
	policy     string
}

func NewTransformer(simplifier llm.Simplifier, policy string) *Transformer {
	if policy == "" {
		policy = config.PolicyFallback
	}
	return &Transformer{simplifier: simplifier, policy: policy}
}

// Strict returns a Transformer sharing the Simplifier that never falls back.
func (t *Transformer) Strict() *Transformer {
	return &Transformer{simplifier: t.simplifier, policy: config.PolicyStrict}
}

func (t *Transformer) Transform(ctx context.Context, raw, model string) (*Output, error) {
	if strings.TrimSpace(raw) == "" {
		if t.policy == config.PolicyStrict {
			return nil, ErrEmptyInput
		}
		slog.Warn("Empty newsletter, storing fallback digest", "model", model)
		return &Output{Content: FallbackHTML(raw), ModelUsed: model, Fallback: true}, nil
	}

	input, err := Compact(raw)
	if err != nil {
		slog.Warn("Failed to compact newsletter HTML, sending as is", "error", err)
		input = raw
	}

	res, err := t.simplifier.Simplify(ctx, llm.SimplifyInput{HTML: input, Model: model})
	if err == nil {
		return &Output{Content: res.Content, ModelUsed: res.ModelUsed}, nil
	}

	if t.policy == config.PolicyStrict || ctx.Err() != nil {
		return nil, fmt.Errorf("failed to simplify newsletter: %w", err)
	}

	slog.Warn("Simplification failed, storing fallback digest", "model", model, "error", err)
	return &Output{Content: FallbackHTML(raw), ModelUsed: model, Fallback: true}, nil
}

// FallbackHTML wraps the untouched newsletter in a minimal document.
func FallbackHTML(raw string) string {
	return `<!-- Processed with fallback -->
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Processed Newsletter</title>
</head>
<body>
  <h1>Processed Newsletter</h1>
  ` + raw + `
</body>
</html>`
}
