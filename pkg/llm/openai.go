package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// including the Gemini API.
type OpenAIClient struct {
	client    *openai.Client
	modelName string
	prompt    string
}

func NewOpenAIClient(apiKey, baseURL, model, prompt string, opts ...option.RequestOption) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		client:    &client,
		modelName: model,
		prompt:    prompt,
	}
}

func (c *OpenAIClient) Simplify(ctx context.Context, input SimplifyInput) (*SimplifyResult, error) {
	model := c.modelName
	if input.Model != "" {
		model = input.Model
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(c.prompt, input.HTML)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", model)
	}

	content := cleanHTMLResponse(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty response from %s", model)
	}

	return &SimplifyResult{
		Content:   content,
		ModelUsed: model,
	}, nil
}
