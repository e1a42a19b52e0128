package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the root logger for the engine. Production environments get
// JSON-encoded logs at info level; anything else gets the human-readable
// development encoder at debug level.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "production", "staging":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
