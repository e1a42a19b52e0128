package llm

import (
	"context"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient extracts insights via the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates an extraction client backed by Anthropic.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, NewError(ErrorTypeModel, "model is required", false, nil)
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger.Named("extraction-anthropic"),
	}, nil
}

// ExtractInsights implements ExtractionClient.
func (c *AnthropicClient) ExtractInsights(ctx context.Context, content string, currentFields map[string]string) (*ExtractionResult, error) {
	prompt := buildExtractionPrompt(content, currentFields)

	c.logger.Debug("extraction request",
		zap.String("model", c.model),
		zap.Int("content_len", len(content)),
		zap.Int("field_count", len(currentFields)))

	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    extractionSystemMessage,
		MaxTokens: 4000,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("extraction request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	responseText := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			responseText = *block.Text
			break
		}
	}
	if responseText == "" {
		return nil, NewError(ErrorTypeParse, "no text content in response", false, nil)
	}

	result, err := parseExtractionResponse(responseText)
	if err != nil {
		return nil, NewError(ErrorTypeParse, "malformed extraction payload", false, err)
	}

	c.logger.Info("extraction completed",
		zap.Int("mappings", len(result.FieldMappings)),
		zap.Int("new_insights", len(result.NewInsights)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
