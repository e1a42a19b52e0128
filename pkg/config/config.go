package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for knowledge-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8088"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Extraction service configuration
	Extraction ExtractionConfig `yaml:"extraction"`

	// Enrichment pipeline tuning
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"knowledge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"knowledge_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// URL builds a PostgreSQL connection URL from the configuration.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// ExtractionConfig holds the insight-extraction service configuration.
// Provider selects the backing API; the key is env-only.
type ExtractionConfig struct {
	Provider string `yaml:"provider" env:"EXTRACTION_PROVIDER" env-default:"openai"` // "openai" or "anthropic"
	BaseURL  string `yaml:"base_url" env:"EXTRACTION_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"EXTRACTION_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"EXTRACTION_API_KEY"` // Secret - not in YAML

	// MaxRetries bounds retry attempts for transient extraction failures.
	MaxRetries int `yaml:"max_retries" env:"EXTRACTION_MAX_RETRIES" env-default:"3"`
}

// PipelineConfig holds the enrichment pipeline's confidence thresholds, decay
// settings, and rolling-history caps. Defaults are the production constants;
// they rarely need changing outside tests.
type PipelineConfig struct {
	// Confidence tier thresholds for the applicator's bucket split.
	HighConfidence   int `yaml:"high_confidence" env:"PIPELINE_HIGH_CONFIDENCE" env-default:"80"`
	MediumConfidence int `yaml:"medium_confidence" env:"PIPELINE_MEDIUM_CONFIDENCE" env-default:"65"`

	// MinMappingConfidence is the hard floor below which extracted mappings
	// are discarded outright.
	MinMappingConfidence int `yaml:"min_mapping_confidence" env:"PIPELINE_MIN_MAPPING_CONFIDENCE" env-default:"50"`

	// Extraction output caps, enforced regardless of what the service returns.
	MaxFieldMappings int `yaml:"max_field_mappings" env:"PIPELINE_MAX_FIELD_MAPPINGS" env-default:"15"`
	MaxNewInsights   int `yaml:"max_new_insights" env:"PIPELINE_MAX_NEW_INSIGHTS" env-default:"10"`

	// Confidence decay settings.
	DecayGracePeriodDays int     `yaml:"decay_grace_period_days" env:"PIPELINE_DECAY_GRACE_PERIOD_DAYS" env-default:"7"`
	DecayMaxAgeDays      int     `yaml:"decay_max_age_days" env:"PIPELINE_DECAY_MAX_AGE_DAYS" env-default:"180"`
	DecayMinRatio        float64 `yaml:"decay_min_ratio" env:"PIPELINE_DECAY_MIN_RATIO" env-default:"0.5"`

	// Dedup similarity threshold for roles and bottlenecks.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"PIPELINE_SIMILARITY_THRESHOLD" env-default:"0.85"`

	// Rolling-history caps.
	MaxHiringRoles    int `yaml:"max_hiring_roles" env:"PIPELINE_MAX_HIRING_ROLES" env-default:"50"`
	MaxBottlenecks    int `yaml:"max_bottlenecks" env:"PIPELINE_MAX_BOTTLENECKS" env-default:"20"`
	MaxFitScores      int `yaml:"max_fit_scores" env:"PIPELINE_MAX_FIT_SCORES" env-default:"20"`
	BottleneckDedupDays int `yaml:"bottleneck_dedup_days" env:"PIPELINE_BOTTLENECK_DEDUP_DAYS" env-default:"30"`
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load(version string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints cleanenv cannot express.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.MediumConfidence >= p.HighConfidence {
		return fmt.Errorf("pipeline: medium confidence threshold (%d) must be below high (%d)",
			p.MediumConfidence, p.HighConfidence)
	}
	if p.MinMappingConfidence > p.MediumConfidence {
		return fmt.Errorf("pipeline: mapping confidence floor (%d) must not exceed medium threshold (%d)",
			p.MinMappingConfidence, p.MediumConfidence)
	}
	if p.DecayMinRatio <= 0 || p.DecayMinRatio > 1 {
		return fmt.Errorf("pipeline: decay min ratio must be in (0, 1], got %g", p.DecayMinRatio)
	}
	if p.DecayMaxAgeDays <= p.DecayGracePeriodDays {
		return fmt.Errorf("pipeline: decay max age (%dd) must exceed grace period (%dd)",
			p.DecayMaxAgeDays, p.DecayGracePeriodDays)
	}
	switch c.Extraction.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("extraction: unknown provider %q", c.Extraction.Provider)
	}
	return nil
}
