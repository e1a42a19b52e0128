package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/config"
)

// NewExtractionClient builds the configured extraction client. The provider
// string selects the backing API; unknown providers fail at startup rather
// than at first use.
func NewExtractionClient(cfg *config.ExtractionConfig, logger *zap.Logger) (ExtractionClient, error) {
	clientCfg := &Config{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Provider)
	}
}
