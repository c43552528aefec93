package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	CoinGecko CoinGeckoConfig `toml:"coingecko"`
	Scan      ScanConfig      `toml:"scan"`
	API       APIConfig       `toml:"api"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Telegram  TelegramConfig  `toml:"telegram"`
	LogLevel  string          `toml:"log_level"`
}

// CoinGeckoConfig configures the market data client.
type CoinGeckoConfig struct {
	BaseURL          string   `toml:"base_url"`
	APIKey           string   `toml:"api_key"`
	Timeout          duration `toml:"timeout"`
	MaxRetries       int      `toml:"max_retries"`
	RetryBackoff     duration `toml:"retry_backoff"`
	RequestInterval  duration `toml:"request_interval"`
	CacheFile        string   `toml:"cache_file"`
	CacheTTL         duration `toml:"cache_ttl"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
}

// ScanConfig configures the scan loop and detection.
type ScanConfig struct {
	Interval      duration `toml:"interval"`
	MinProfitPct  float64  `toml:"min_profit_pct"`
	RefreshEvery  int      `toml:"refresh_every"`
	TopTokens     int      `toml:"top_tokens"`
	TopExchanges  int      `toml:"top_exchanges"`
	QuoteCurrency string   `toml:"quote_currency"`
	Timezone      string   `toml:"timezone"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port        string   `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	AdminToken  string   `toml:"admin_token"`
}

// DatabaseConfig configures the optional opportunity history store.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig configures the optional snapshot mirror.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// TelegramConfig configures the notification bot.
type TelegramConfig struct {
	BotToken          string `toml:"bot_token"`
	AdminChatID       int64  `toml:"admin_chat_id"`
	SubscriptionsFile string `toml:"subscriptions_file"`
}

// duration wraps time.Duration so TOML strings like "120s" decode.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load builds the configuration from defaults, the optional TOML file at path,
// a .env file if present, and environment variables, in that order. The result
// is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.CoinGecko.BaseURL, "COINGECKO_BASE_URL")
	setStr(&cfg.CoinGecko.APIKey, "COINGECKO_API")
	setStr(&cfg.CoinGecko.APIKey, "COINGECKO_API_KEY")
	setDuration(&cfg.CoinGecko.Timeout, "COINGECKO_TIMEOUT")
	setInt(&cfg.CoinGecko.MaxRetries, "MAX_RETRIES")
	setDuration(&cfg.CoinGecko.RetryBackoff, "RETRY_BACKOFF")
	setDuration(&cfg.CoinGecko.RequestInterval, "REQUEST_INTERVAL")
	setStr(&cfg.CoinGecko.CacheFile, "CACHE_FILE")
	setDuration(&cfg.CoinGecko.CacheTTL, "CACHE_TTL")
	setInt(&cfg.CoinGecko.FetchConcurrency, "FETCH_CONCURRENCY")

	setDuration(&cfg.Scan.Interval, "SCAN_INTERVAL")
	setFloat64(&cfg.Scan.MinProfitPct, "MIN_PROFIT_PCT")
	setInt(&cfg.Scan.RefreshEvery, "REFRESH_EVERY")
	setInt(&cfg.Scan.TopTokens, "TOP_TOKENS")
	setInt(&cfg.Scan.TopExchanges, "TOP_EXCHANGES")
	setStr(&cfg.Scan.QuoteCurrency, "QUOTE_CURRENCY")
	setStr(&cfg.Scan.Timezone, "TIMEZONE")

	setStr(&cfg.API.Port, "API_PORT")
	setStringSlice(&cfg.API.CORSOrigins, "CORS_ORIGINS")
	setStr(&cfg.API.AdminToken, "ADMIN_TOKEN")

	setStr(&cfg.Database.URL, "DATABASE_URL")

	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setStr(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setInt64(&cfg.Telegram.AdminChatID, "TELEGRAM_ADMIN_CHAT_ID")
	setStr(&cfg.Telegram.SubscriptionsFile, "SUBSCRIPTIONS_FILE")

	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// setDuration accepts Go duration strings ("90s") or bare seconds ("120").
func setDuration(dst *duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		dst.Duration = d
		return
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		dst.Duration = time.Duration(secs * float64(time.Second))
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
