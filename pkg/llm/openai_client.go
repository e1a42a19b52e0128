package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient extracts insights via an OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds configuration for creating an extraction client.
type Config struct {
	BaseURL string // Base URL, e.g., "https://api.openai.com/v1"
	Model   string // Model name, e.g., "gpt-4o-mini"
	APIKey  string // Optional for local endpoints
}

// NewOpenAIClient creates an extraction client for OpenAI-compatible endpoints.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("extraction-openai"),
	}, nil
}

// ExtractInsights implements ExtractionClient.
func (c *OpenAIClient) ExtractInsights(ctx context.Context, content string, currentFields map[string]string) (*ExtractionResult, error) {
	prompt := buildExtractionPrompt(content, currentFields)

	c.logger.Debug("extraction request",
		zap.String("model", c.model),
		zap.Int("content_len", len(content)),
		zap.Int("field_count", len(currentFields)))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("extraction request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeParse, "no choices in response", false, nil)
	}

	result, err := parseExtractionResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, NewError(ErrorTypeParse, "malformed extraction payload", false, err)
	}

	c.logger.Info("extraction completed",
		zap.Int("mappings", len(result.FieldMappings)),
		zap.Int("new_insights", len(result.NewInsights)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// GetModel returns the configured model name.
func (c *OpenAIClient) GetModel() string {
	return c.model
}
