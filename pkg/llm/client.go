package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// ErrNoAPIKey is returned by New when the provider has no key configured.
var ErrNoAPIKey = errors.New("API key not configured")

type SimplifyInput struct {
	HTML  string
	Model string // empty uses the client default
}

type SimplifyResult struct {
	Content   string
	ModelUsed string
}

// Simplifier rewrites one newsletter's HTML into a digest.
type Simplifier interface {
	Simplify(ctx context.Context, input SimplifyInput) (*SimplifyResult, error)
}

type Options struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Prompt    string // empty uses DigestPrompt
}

// New builds the HTTP-backed Simplifier for opts.Provider.
func New(opts Options) (Simplifier, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrNoAPIKey, opts.Provider)
	}

	switch strings.ToLower(opts.Provider) {
	case ProviderGemini, "":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		return NewOpenAIClient(opts.APIKey, baseURL, opts.Model, opts.Prompt), nil
	case ProviderOpenAI:
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, opts.Prompt), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts.APIKey, opts.BaseURL, opts.Model, opts.MaxTokens, opts.Prompt), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// Unavailable returns a Simplifier that fails every call with err. It stands
// in for a provider that could not be configured.
func Unavailable(err error) Simplifier {
	return unavailable{err: err}
}

type unavailable struct {
	err error
}

func (u unavailable) Simplify(context.Context, SimplifyInput) (*SimplifyResult, error) {
	return nil, u.err
}
