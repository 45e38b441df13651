package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 8192

type AnthropicClient struct {
	client    *anthropic.Client
	modelName string
	maxTokens int64
	prompt    string
}

func NewAnthropicClient(apiKey, baseURL, model string, maxTokens int, prompt string, opts ...option.RequestOption) *AnthropicClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	if model == "" {
		model = "claude-haiku-4-5"
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	client := anthropic.NewClient(reqOpts...)
	return &AnthropicClient{
		client:    &client,
		modelName: model,
		maxTokens: int64(maxTokens),
		prompt:    prompt,
	}
}

func (c *AnthropicClient) Simplify(ctx context.Context, input SimplifyInput) (*SimplifyResult, error) {
	model := c.modelName
	if input.Model != "" {
		model = input.Model
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(c.prompt, input.HTML))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no response from anthropic")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		sb.WriteString(block.Text)
	}

	content := cleanHTMLResponse(sb.String())
	if content == "" {
		return nil, fmt.Errorf("empty response from %s", model)
	}

	return &SimplifyResult{
		Content:   content,
		ModelUsed: model,
	}, nil
}
