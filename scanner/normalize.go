package scanner

import (
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"time"

	"Spotter/exchanges/coingecko"
	"Spotter/models"
)

// ExchangeTickers holds the raw tickers fetched for one exchange in a pass.
type ExchangeTickers struct {
	Exchange string
	Raw      []json.RawMessage
}

// NormalizeStats counts what happened to each raw ticker.
type NormalizeStats struct {
	Kept      int
	Filtered  int // outside the universe or wrong quote currency
	Malformed int // could not be decoded
	Invalid   int // missing or non-positive price, negative volume
}

// Normalizer turns provider tickers into uniform records.
type Normalizer struct {
	Quote    string
	Location *time.Location
	Logger   *slog.Logger
}

// Normalize keeps the tickers for tracked tokens quoted in n.Quote, in slot
// order then provider order.
func (n Normalizer) Normalize(tokens map[string]struct{}, slots []ExchangeTickers) ([]models.Ticker, NormalizeStats) {
	var stats NormalizeStats
	batch := make([]models.Ticker, 0)
	quote := strings.ToUpper(n.Quote)

	for _, slot := range slots {
		for _, raw := range slot.Raw {
			var tk coingecko.Ticker
			if err := json.Unmarshal(raw, &tk); err != nil {
				stats.Malformed++
				continue
			}

			base := strings.ToUpper(tk.Base)
			if _, ok := tokens[base]; !ok || strings.ToUpper(tk.Target) != quote {
				stats.Filtered++
				continue
			}

			rec, ok := n.record(slot.Exchange, base, tk)
			if !ok {
				stats.Invalid++
				continue
			}
			batch = append(batch, rec)
			stats.Kept++
		}
	}

	return batch, stats
}

func (n Normalizer) record(exchange, token string, tk coingecko.Ticker) (models.Ticker, bool) {
	if tk.Last == nil || !finite(*tk.Last) || *tk.Last <= 0 {
		return models.Ticker{}, false
	}

	rec := models.Ticker{
		Exchange: exchange,
		Token:    token,
		Price:    *tk.Last,
	}
	if tk.Volume != nil {
		if !finite(*tk.Volume) || *tk.Volume < 0 {
			return models.Ticker{}, false
		}
		rec.Volume = *tk.Volume
	}
	if tk.BidAskSpreadPercentage != nil && finite(*tk.BidAskSpreadPercentage) {
		rec.Spread = *tk.BidAskSpreadPercentage
	}
	rec.TradeTime = n.tradeTime(tk.LastTradedAt)

	return rec, true
}

func (n Normalizer) tradeTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if n.Logger != nil {
			n.Logger.Debug("timezone conversion failed", "value", s, "err", err)
		}
		return nil
	}
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	local := ts.In(loc)
	return &local
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
