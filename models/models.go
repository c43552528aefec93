package models

import "time"

// Ticker is one normalized spot price record for a token on an exchange.
type Ticker struct {
	Exchange  string     `json:"exchange"`   // Exchange id (e.g., "binance")
	Token     string     `json:"token"`      // Uppercased base symbol (e.g., "BTC")
	Price     float64    `json:"last_price"` // Last traded price in the quote currency
	Volume    float64    `json:"last_vol"`
	Spread    float64    `json:"spread"` // Bid-ask spread percentage
	TradeTime *time.Time `json:"trade_time,omitempty"`
}

// Opportunity is a cross-exchange price divergence for a single token.
type Opportunity struct {
	Token            string  `json:"token"`
	BuyExchange      string  `json:"buy_exchange"`
	BuyPrice         float64 `json:"buy_price"`
	SellExchange     string  `json:"sell_exchange"`
	SellPrice        float64 `json:"sell_price"`
	PriceDiffPct     float64 `json:"price_diff_pct"`      // Rounded to 2 decimals
	ProfitPer1000USD float64 `json:"profit_per_1000_usd"` // Rounded to 2 decimals

	RawDiffPct   float64 `json:"-"`
	RawProfitUSD float64 `json:"-"`
}

// ExchangeAggregate holds per-exchange descriptive statistics for one batch.
type ExchangeAggregate struct {
	Exchange   string  `json:"exchange"`
	MeanPrice  float64 `json:"last_price_mean"`
	MeanVolume float64 `json:"last_vol_mean"`
	MeanSpread float64 `json:"spread_mean"`
	TradeCount int     `json:"num_trades"`
}

// Exchange is a tracked exchange as listed by the market data provider.
type Exchange struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	TradeVolume24hBTC float64 `json:"trade_volume_24h_btc"`
}

// Universe is the working set of tracked tokens and exchanges.
type Universe struct {
	Tokens    []string   `json:"tokens"`
	Exchanges []Exchange `json:"exchanges"`
}

// Empty reports whether there is nothing to scan.
func (u Universe) Empty() bool {
	return len(u.Tokens) == 0 || len(u.Exchanges) == 0
}

// TokenSet returns the tokens as a lookup set.
func (u Universe) TokenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(u.Tokens))
	for _, t := range u.Tokens {
		set[t] = struct{}{}
	}
	return set
}

// ScanStats summarizes one scan pass.
type ScanStats struct {
	ExchangesOK     int           `json:"exchanges_ok"`
	ExchangesFailed int           `json:"exchanges_failed"`
	Kept            int           `json:"kept"`
	Filtered        int           `json:"filtered"`
	Malformed       int           `json:"malformed"`
	Invalid         int           `json:"invalid"`
	Duration        time.Duration `json:"duration_ns"`
}

// Snapshot is the immutable result of one scan pass. A published Snapshot must
// never be mutated; readers share it.
type Snapshot struct {
	ID            string              `json:"id"`
	Iteration     int64               `json:"iteration"`
	Batch         []Ticker            `json:"batch"`
	Opportunities []Opportunity       `json:"opportunities"`
	Aggregates    []ExchangeAggregate `json:"aggregates"`
	Stats         ScanStats           `json:"stats"`
	Timestamp     time.Time           `json:"timestamp"`
}

// UnixSeconds returns the snapshot timestamp as fractional unix seconds.
func (s *Snapshot) UnixSeconds() float64 {
	return float64(s.Timestamp.UnixNano()) / float64(time.Second)
}

// Summary is the compact form of a Snapshot pushed to stream subscribers.
type Summary struct {
	ID               string        `json:"id"`
	Iteration        int64         `json:"iteration"`
	Timestamp        float64       `json:"timestamp"`
	TickerCount      int           `json:"ticker_count"`
	OpportunityCount int           `json:"opportunity_count"`
	Opportunities    []Opportunity `json:"opportunities"`
}

// Summarize builds the stream summary of s.
func (s *Snapshot) Summarize() Summary {
	return Summary{
		ID:               s.ID,
		Iteration:        s.Iteration,
		Timestamp:        s.UnixSeconds(),
		TickerCount:      len(s.Batch),
		OpportunityCount: len(s.Opportunities),
		Opportunities:    s.Opportunities,
	}
}
