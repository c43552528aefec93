package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
log_level = "debug"

[coingecko]
api_key = "file-key"
retry_backoff = "250ms"

[scan]
interval = "90s"
min_profit_pct = 1.25
top_tokens = 20
timezone = "UTC"

[api]
port = ":9000"
cors_origins = ["https://dash.example.com"]
`
	path := writeTempFile(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CoinGecko.APIKey != "file-key" {
		t.Errorf("CoinGecko.APIKey = %q, want %q", cfg.CoinGecko.APIKey, "file-key")
	}
	if cfg.CoinGecko.RetryBackoff.Duration != 250*time.Millisecond {
		t.Errorf("RetryBackoff = %v, want %v", cfg.CoinGecko.RetryBackoff.Duration, 250*time.Millisecond)
	}
	if cfg.Scan.Interval.Duration != 90*time.Second {
		t.Errorf("Scan.Interval = %v, want %v", cfg.Scan.Interval.Duration, 90*time.Second)
	}
	if cfg.Scan.MinProfitPct != 1.25 {
		t.Errorf("Scan.MinProfitPct = %v, want 1.25", cfg.Scan.MinProfitPct)
	}
	if cfg.Scan.TopTokens != 20 {
		t.Errorf("Scan.TopTokens = %d, want 20", cfg.Scan.TopTokens)
	}
	if cfg.API.Port != ":9000" {
		t.Errorf("API.Port = %q, want %q", cfg.API.Port, ":9000")
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "https://dash.example.com" {
		t.Errorf("API.CORSOrigins = %v", cfg.API.CORSOrigins)
	}

	// Untouched fields keep their defaults.
	if cfg.Scan.RefreshEvery != DefaultRefreshEvery {
		t.Errorf("Scan.RefreshEvery = %d, want default %d", cfg.Scan.RefreshEvery, DefaultRefreshEvery)
	}
	if cfg.CoinGecko.CacheTTL.Duration != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want default %v", cfg.CoinGecko.CacheTTL.Duration, DefaultCacheTTL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CoinGecko.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default %q", cfg.CoinGecko.BaseURL, DefaultBaseURL)
	}
	if cfg.CoinGecko.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want default %d", cfg.CoinGecko.MaxRetries, DefaultMaxRetries)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "env-key")
	t.Setenv("SCAN_INTERVAL", "45")
	t.Setenv("MIN_PROFIT_PCT", "0.75")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "706456243")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("CACHE_TTL", "3h")

	path := writeTempFile(t, "[coingecko]\napi_key = \"file-key\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CoinGecko.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want %q", cfg.CoinGecko.APIKey, "env-key")
	}
	if cfg.Scan.Interval.Duration != 45*time.Second {
		t.Errorf("Scan.Interval = %v, want 45s", cfg.Scan.Interval.Duration)
	}
	if cfg.Scan.MinProfitPct != 0.75 {
		t.Errorf("MinProfitPct = %v, want 0.75", cfg.Scan.MinProfitPct)
	}
	if cfg.Telegram.AdminChatID != 706456243 {
		t.Errorf("AdminChatID = %d, want 706456243", cfg.Telegram.AdminChatID)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.API.CORSOrigins)
	}
	if cfg.CoinGecko.CacheTTL.Duration != 3*time.Hour {
		t.Errorf("CacheTTL = %v, want 3h", cfg.CoinGecko.CacheTTL.Duration)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Scan.Interval.Duration = 0 },
			wantErr: "scan.interval must be positive, got 0s",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Scan.MinProfitPct = -1 },
			wantErr: "scan.min_profit_pct must be >= 0, got -1",
		},
		{
			name:    "zero threshold allowed",
			mutate:  func(c *Config) { c.Scan.MinProfitPct = 0 },
			wantErr: "",
		},
		{
			name:    "refresh every zero",
			mutate:  func(c *Config) { c.Scan.RefreshEvery = 0 },
			wantErr: "scan.refresh_every must be >= 1",
		},
		{
			name:    "no retries",
			mutate:  func(c *Config) { c.CoinGecko.MaxRetries = 0 },
			wantErr: "coingecko.max_retries must be >= 1",
		},
		{
			name:    "bad concurrency",
			mutate:  func(c *Config) { c.CoinGecko.FetchConcurrency = 0 },
			wantErr: "coingecko.fetch_concurrency must be >= 1",
		},
		{
			name:    "empty quote currency",
			mutate:  func(c *Config) { c.Scan.QuoteCurrency = " " },
			wantErr: "scan.quote_currency is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: `log_level must be one of debug, info, warn, error, got "verbose"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Scan.Timezone = "UTC"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
			} else if err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
