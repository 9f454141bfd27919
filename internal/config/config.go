package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const envPrefix = "ARCHIVESEARCH"

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	CDXEndpoint    string        `envconfig:"CDX_ENDPOINT" default:"https://web.archive.org/cdx/search/cdx"`
	ArchiveBaseURL string        `envconfig:"ARCHIVE_BASE_URL" default:"https://web.archive.org/web/"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"120s"`
	FetchRate      float64       `envconfig:"FETCH_RATE" default:"2"`
	FetchBurst     int           `envconfig:"FETCH_BURST" default:"4"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"archivesearch/1.0"`

	SessionSecret string `envconfig:"SESSION_SECRET" default:"change-me"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"logs/queries.txt"`

	// Optional Postgres query log
	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"archivesearch-logs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	LogArchiveInterval time.Duration `envconfig:"LOG_ARCHIVE_INTERVAL" default:"1h"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("invalid config: FETCH_TIMEOUT must be positive")
	}
	if cfg.QueryLogPath == "" {
		return nil, fmt.Errorf("invalid config: QUERY_LOG_PATH is required")
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// TracesSampleRate samples everything outside production
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
