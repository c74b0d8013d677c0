package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	BackendURL     string `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`
	PreviewMaxDim  int    `envconfig:"PREVIEW_MAX_DIM" default:"512"`
	// Images over PreviewMaxPixels are not decoded; raw fallbacks over
	// PreviewMaxRawBytes get no preview.
	PreviewMaxPixels   int `envconfig:"PREVIEW_MAX_PIXELS" default:"40000000"`
	PreviewMaxRawBytes int `envconfig:"PREVIEW_MAX_RAW_BYTES" default:"1048576"`

	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	// Optional search history
	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"vsearch-queries"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	// Lifetime of the presigned "query image" links in history.
	S3URLExpiry time.Duration `envconfig:"S3_URL_EXPIRY" default:"1h"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("VSEARCH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("VSEARCH_MAX_UPLOAD_BYTES must be positive")
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
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

// TracesSampleRate samples everything in development and 10% elsewhere.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "" || c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
