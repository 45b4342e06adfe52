package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"AISCAN_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"AISCAN_DB_MAX_CONNS" default:"8"`

	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	InternalAPIKey string `envconfig:"INTERNAL_API_KEY" default:""`

	// Digest shape knobs. Raw values are clamped by the accessor methods so
	// a bad deployment cannot produce an unbuildable digest.
	MediaMaxRaw             int     `envconfig:"MEDIA_MAX" default:"40"`
	PracticalTargetRatioRaw float64 `envconfig:"PRACTICAL_TARGET_RATIO" default:"0.85"`
	RepeatWindowDaysRaw     int     `envconfig:"REPEAT_WINDOW_DAYS" default:"7"`

	EnableScheduler bool          `envconfig:"ENABLE_SCHEDULER" default:"false"`
	PublishTime     string        `envconfig:"PUBLISH_TIME" default:"09:00"`
	IngestInterval  time.Duration `envconfig:"INGEST_INTERVAL" default:"2h"`

	SummarizerProvider string `envconfig:"SUMMARIZER_PROVIDER" default:""`
	SummarizerAPIKey   string `envconfig:"SUMMARIZER_API_KEY" default:""`
	SummarizerBaseURL  string `envconfig:"SUMMARIZER_BASE_URL" default:""`
	SummarizerModel    string `envconfig:"SUMMARIZER_MODEL" default:""`

	SocialAggABaseURL string `envconfig:"SOCIAL_AGG_A_BASE_URL" default:""`
	SocialAggAAPIKey  string `envconfig:"SOCIAL_AGG_A_API_KEY" default:""`
	SocialAggBBaseURL string `envconfig:"SOCIAL_AGG_B_BASE_URL" default:""`
	SocialAggBAPIKey  string `envconfig:"SOCIAL_AGG_B_API_KEY" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("AISCAN_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("AISCAN_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("AISCAN_DB_MIN_CONNS (%d) cannot exceed AISCAN_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if _, _, err := ParsePublishTime(c.PublishTime); err != nil {
		return err
	}
	if c.IngestInterval < time.Minute {
		return fmt.Errorf("INGEST_INTERVAL must be at least one minute")
	}
	return nil
}

// MediaMax is the global cap on MEDIA entries per digest, clamped to 0..80.
func (c *Config) MediaMax() int {
	return clampInt(c.MediaMaxRaw, 0, 80)
}

// PracticalTargetRatio is the share of each category reserved for PRACTICAL
// sources in the first selection pass, clamped to 0.5..0.95.
func (c *Config) PracticalTargetRatio() float64 {
	return clampFloat(c.PracticalTargetRatioRaw, 0.5, 0.95)
}

// RepeatWindowDays is the lookback used for repeat-decay streaks, clamped
// to 3..14.
func (c *Config) RepeatWindowDays() int {
	return clampInt(c.RepeatWindowDaysRaw, 3, 14)
}

// ParsePublishTime parses an HH:MM wall-clock value.
func ParsePublishTime(value string) (hour, minute int, err error) {
	trimmed := strings.TrimSpace(value)
	if _, parseErr := fmt.Sscanf(trimmed, "%d:%d", &hour, &minute); parseErr != nil {
		return 0, 0, fmt.Errorf("PUBLISH_TIME must look like 09:00, got %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("PUBLISH_TIME out of range: %q", value)
	}
	return hour, minute, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
