package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Service auth. Optional: when empty the API is open, for local use.
	ServiceAPIKey string

	// Upstream vision model.
	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string

	// Rasterization.
	RasterDPI float64
	MaxPages  int

	// Upload limits.
	MaxUploadBytes int64

	// Upstream call policy.
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Extraction defaults.
	DefaultMode string

	// Worker pool.
	WorkerCount  int
	MaxQueueSize int

	// Run state.
	RunTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		ServiceAPIKey: os.Getenv("POEXTRACT_API_KEY"),

		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: envOr("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicModel:   envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),

		RasterDPI: envFloat("RASTER_DPI", 144),
		MaxPages:  envInt("MAX_PAGES", 10),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		RequestTimeout: envDuration("REQUEST_TIMEOUT", 120*time.Second),
		MaxRetries:     envInt("MAX_RETRIES", 2),
		RetryBaseDelay: envDuration("RETRY_BASE_DELAY", 1*time.Second),

		DefaultMode: envOr("DEFAULT_MODE", "basic"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),
	}

	if cfg.RasterDPI <= 0 {
		cfg.RasterDPI = 144
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 1 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.RasterDPI < 36 || c.RasterDPI > 600 {
		return fmt.Errorf("RASTER_DPI must be between 36 and 600, got %g", c.RasterDPI)
	}
	if c.DefaultMode != "basic" && c.DefaultMode != "advanced" {
		return fmt.Errorf("DEFAULT_MODE must be basic or advanced, got %q", c.DefaultMode)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
