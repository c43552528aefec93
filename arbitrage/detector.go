// Package arbitrage computes cross-exchange opportunities and per-exchange
// statistics from one batch of normalized tickers. Everything here is a pure
// function of its input.
package arbitrage

import (
	"sort"

	"Spotter/models"

	"github.com/shopspring/decimal"
)

// Notional is the investment size used for ProfitPer1000USD.
const Notional = 1000.0

// Detect returns the opportunities in batch whose price difference is at least
// minProfitPct, sorted by difference descending.
//
// Per token each exchange is reduced to its cheapest and dearest market, and
// the widest buy/sell pair across two different exchanges is reported. Equal
// spreads resolve to the lexicographically smallest buy exchange, then sell
// exchange. A zero difference is never reported, whatever the threshold.
func Detect(batch []models.Ticker, minProfitPct float64) []models.Opportunity {
	groups, order := groupByToken(batch)

	opps := make([]models.Opportunity, 0)
	for _, token := range order {
		buy, sell, ok := widestPair(groups[token])
		if !ok {
			continue
		}

		diff := sell.Price - buy.Price
		diffPct := diff * 100 / buy.Price
		if diffPct < minProfitPct {
			continue
		}
		profit := (Notional / buy.Price) * diff

		opps = append(opps, models.Opportunity{
			Token:            token,
			BuyExchange:      buy.Exchange,
			BuyPrice:         buy.Price,
			SellExchange:     sell.Exchange,
			SellPrice:        sell.Price,
			PriceDiffPct:     Round2(diffPct),
			ProfitPer1000USD: Round2(profit),
			RawDiffPct:       diffPct,
			RawProfitUSD:     profit,
		})
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].RawDiffPct != opps[j].RawDiffPct {
			return opps[i].RawDiffPct > opps[j].RawDiffPct
		}
		return opps[i].Token < opps[j].Token
	})
	return opps
}

func groupByToken(batch []models.Ticker) (map[string][]models.Ticker, []string) {
	groups := make(map[string][]models.Ticker)
	var order []string
	for _, t := range batch {
		if _, ok := groups[t.Token]; !ok {
			order = append(order, t.Token)
		}
		groups[t.Token] = append(groups[t.Token], t)
	}
	return groups, order
}

type priceRange struct {
	exchange string
	lo, hi   float64
}

// byExchange reduces rows to one price range per exchange, sorted by id.
func byExchange(rows []models.Ticker) []priceRange {
	idx := make(map[string]int, len(rows))
	var out []priceRange
	for _, r := range rows {
		i, ok := idx[r.Exchange]
		if !ok {
			idx[r.Exchange] = len(out)
			out = append(out, priceRange{exchange: r.Exchange, lo: r.Price, hi: r.Price})
			continue
		}
		out[i].lo = min(out[i].lo, r.Price)
		out[i].hi = max(out[i].hi, r.Price)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].exchange < out[j].exchange })
	return out
}

// widestPair returns the cross-exchange pair with the largest positive
// percentage spread. ok is false when no such pair exists.
func widestPair(rows []models.Ticker) (buy, sell models.Ticker, ok bool) {
	ranges := byExchange(rows)
	best := 0.0
	for _, b := range ranges {
		for _, s := range ranges {
			if b.exchange == s.exchange {
				continue
			}
			pct := (s.hi - b.lo) * 100 / b.lo
			if pct > best {
				best = pct
				buy = models.Ticker{Exchange: b.exchange, Token: rows[0].Token, Price: b.lo}
				sell = models.Ticker{Exchange: s.exchange, Token: rows[0].Token, Price: s.hi}
				ok = true
			}
		}
	}
	return buy, sell, ok
}

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
