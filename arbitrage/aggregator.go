package arbitrage

import (
	"sort"

	"Spotter/models"
)

// Aggregate returns one row per exchange present in batch, ordered by
// exchange id. An empty batch yields an empty slice.
func Aggregate(batch []models.Ticker) []models.ExchangeAggregate {
	type sums struct {
		price, volume, spread float64
		count                 int
	}

	byExchange := make(map[string]*sums)
	for _, t := range batch {
		s, ok := byExchange[t.Exchange]
		if !ok {
			s = &sums{}
			byExchange[t.Exchange] = s
		}
		s.price += t.Price
		s.volume += t.Volume
		s.spread += t.Spread
		s.count++
	}

	rows := make([]models.ExchangeAggregate, 0, len(byExchange))
	for ex, s := range byExchange {
		n := float64(s.count)
		rows = append(rows, models.ExchangeAggregate{
			Exchange:   ex,
			MeanPrice:  Round2(s.price / n),
			MeanVolume: Round2(s.volume / n),
			MeanSpread: Round2(s.spread / n),
			TradeCount: s.count,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Exchange < rows[j].Exchange })
	return rows
}
