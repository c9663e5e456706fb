package llm

import (
	"context"
	"fmt"
	"net/http"

	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/shared"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIClient is a client for the OpenAI chat completions API.
type openAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client. SDK retries are disabled: a
// failed completion is reported to the caller as-is.
func NewOpenAIClient(cfg *config.Config) TextGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.CompletionTimeout}),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return &openAIClient{
		client: openai.NewClient(opts...),
		model:  cfg.LLMModel,
	}
}

// GenerateContent sends the prompts at temperature 0 and returns the first choice.
func (c *openAIClient) GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (ContentResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return ContentResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Model:            model,
		},
	}, nil
}
