package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the heliosaver tool
type Config struct {
	// Helioviewer API
	BaseURL         string        `env:"HELIOVIEWER_BASE_URL,default=https://api.helioviewer.org/v2/"`
	QueryTimeout    time.Duration `env:"HELIOVIEWER_QUERY_TIMEOUT,default=60s"`
	DownloadTimeout time.Duration `env:"HELIOVIEWER_DOWNLOAD_TIMEOUT,default=120s"`

	// Batch processing
	Concurrency int `env:"HELIOSAVER_CONCURRENCY,default=1"`

	// Output
	OutputDir string `env:"HELIOSAVER_OUTPUT_DIR,default=."`

	// GCS configuration (optional, local filesystem otherwise)
	GCSBucket string `env:"GCS_BUCKET"`

	// Service configuration
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &cfg, nil
}
