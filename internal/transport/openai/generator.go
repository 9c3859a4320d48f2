package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Generator produces chat completions via the OpenAI-compatible API.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// GeneratorConfig holds the chat completion provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Generate returns the model's completion for a single user prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrModelUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
