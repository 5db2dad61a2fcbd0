package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "POEXTRACT_API_KEY", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL",
		"ANTHROPIC_MODEL", "RASTER_DPI", "MAX_PAGES", "MAX_UPLOAD_BYTES",
		"REQUEST_TIMEOUT", "MAX_RETRIES", "RETRY_BASE_DELAY", "DEFAULT_MODE",
		"WORKER_COUNT", "MAX_QUEUE_SIZE", "RUN_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.RasterDPI != 144 || cfg.MaxPages != 10 {
		t.Errorf("raster defaults: dpi=%g pages=%d", cfg.RasterDPI, cfg.MaxPages)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.RequestTimeout != 120*time.Second || cfg.MaxRetries != 2 || cfg.RetryBaseDelay != time.Second {
		t.Errorf("call policy: timeout=%v retries=%d base=%v",
			cfg.RequestTimeout, cfg.MaxRetries, cfg.RetryBaseDelay)
	}
	if cfg.DefaultMode != "basic" {
		t.Errorf("DefaultMode = %q", cfg.DefaultMode)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 || cfg.RunTTL != time.Hour {
		t.Errorf("pool defaults: workers=%d queue=%d ttl=%v",
			cfg.WorkerCount, cfg.MaxQueueSize, cfg.RunTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("RASTER_DPI", "300")
	t.Setenv("MAX_PAGES", "4")
	t.Setenv("REQUEST_TIMEOUT", "30s")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("DEFAULT_MODE", "advanced")

	cfg := Load()
	if cfg.Port != "9999" || cfg.RasterDPI != 300 || cfg.MaxPages != 4 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.MaxRetries != 5 {
		t.Errorf("call policy overrides: %+v", cfg)
	}
	if cfg.DefaultMode != "advanced" {
		t.Errorf("DefaultMode = %q", cfg.DefaultMode)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_PAGES", "lots")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("MAX_RETRIES", "-3")

	cfg := Load()
	if cfg.MaxPages != 10 {
		t.Errorf("unparsable MAX_PAGES should fall back, got %d", cfg.MaxPages)
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("unparsable REQUEST_TIMEOUT should fall back, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("negative MAX_RETRIES should fall back, got %d", cfg.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		AnthropicAPIKey: "sk-test",
		RasterDPI:       144,
		DefaultMode:     "basic",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.AnthropicAPIKey = "" }},
		{"dpi too low", func(c *Config) { c.RasterDPI = 10 }},
		{"dpi too high", func(c *Config) { c.RasterDPI = 1200 }},
		{"bad mode", func(c *Config) { c.DefaultMode = "full" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
