package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.CoinGecko.BaseURL == "" {
		return errors.New("coingecko.base_url is required")
	}
	if c.CoinGecko.MaxRetries < 1 {
		return errors.New("coingecko.max_retries must be >= 1")
	}
	if c.CoinGecko.RetryBackoff.Duration < 0 {
		return errors.New("coingecko.retry_backoff must be >= 0")
	}
	if c.CoinGecko.RequestInterval.Duration < 0 {
		return errors.New("coingecko.request_interval must be >= 0")
	}
	if c.CoinGecko.CacheTTL.Duration <= 0 {
		return errors.New("coingecko.cache_ttl must be positive")
	}
	if c.CoinGecko.FetchConcurrency < 1 {
		return errors.New("coingecko.fetch_concurrency must be >= 1")
	}

	if c.Scan.Interval.Duration <= 0 {
		return fmt.Errorf("scan.interval must be positive, got %s", c.Scan.Interval.Duration)
	}
	if c.Scan.MinProfitPct < 0 {
		return fmt.Errorf("scan.min_profit_pct must be >= 0, got %g", c.Scan.MinProfitPct)
	}
	if c.Scan.RefreshEvery < 1 {
		return errors.New("scan.refresh_every must be >= 1")
	}
	if c.Scan.TopTokens < 1 {
		return errors.New("scan.top_tokens must be >= 1")
	}
	if c.Scan.TopExchanges < 1 {
		return errors.New("scan.top_exchanges must be >= 1")
	}
	if strings.TrimSpace(c.Scan.QuoteCurrency) == "" {
		return errors.New("scan.quote_currency is required")
	}
	if _, err := time.LoadLocation(c.Scan.Timezone); err != nil {
		return fmt.Errorf("scan.timezone %q: %w", c.Scan.Timezone, err)
	}

	if c.API.Port == "" {
		return errors.New("api.port is required")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	return nil
}
