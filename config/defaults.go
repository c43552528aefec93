package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://pro-api.coingecko.com/api/v3"
	DefaultTimeout           = 30 * time.Second
	DefaultMaxRetries        = 5
	DefaultRetryBackoff      = time.Second
	DefaultRequestInterval   = 1200 * time.Millisecond
	DefaultCacheFile         = "cache.json"
	DefaultCacheTTL          = 6 * time.Hour
	DefaultFetchConcurrency  = 4
	DefaultScanInterval      = 120 * time.Second
	DefaultMinProfitPct      = 0.5
	DefaultRefreshEvery      = 60
	DefaultTopTokens         = 100
	DefaultTopExchanges      = 10
	DefaultQuoteCurrency     = "USDT"
	DefaultTimezone          = "Africa/Lagos"
	DefaultAPIPort           = ":8000"
	DefaultSubscriptionsFile = "subscriptions.json"
	DefaultLogLevel          = "info"
)

// Defaults returns a Config populated with every default value.
func Defaults() Config {
	return Config{
		CoinGecko: CoinGeckoConfig{
			BaseURL:          DefaultBaseURL,
			Timeout:          duration{DefaultTimeout},
			MaxRetries:       DefaultMaxRetries,
			RetryBackoff:     duration{DefaultRetryBackoff},
			RequestInterval:  duration{DefaultRequestInterval},
			CacheFile:        DefaultCacheFile,
			CacheTTL:         duration{DefaultCacheTTL},
			FetchConcurrency: DefaultFetchConcurrency,
		},
		Scan: ScanConfig{
			Interval:      duration{DefaultScanInterval},
			MinProfitPct:  DefaultMinProfitPct,
			RefreshEvery:  DefaultRefreshEvery,
			TopTokens:     DefaultTopTokens,
			TopExchanges:  DefaultTopExchanges,
			QuoteCurrency: DefaultQuoteCurrency,
			Timezone:      DefaultTimezone,
		},
		API: APIConfig{
			Port:        DefaultAPIPort,
			CORSOrigins: []string{"*"},
		},
		Telegram: TelegramConfig{
			SubscriptionsFile: DefaultSubscriptionsFile,
		},
		LogLevel: DefaultLogLevel,
	}
}
