package api

import (
	"Spotter/models"

	"github.com/shopspring/decimal"
)

// DefaultInvestments are the notional sizes reported by /profit.
var DefaultInvestments = []int64{1000, 10000, 100000}

// ProfitRow is the outcome of buying on the cheap side and selling on the
// dear side with a fixed investment.
type ProfitRow struct {
	Investment float64 `json:"investment"`
	Units      float64 `json:"units"`
	Value      float64 `json:"value"`
	Gross      float64 `json:"gross"`
	Fees       float64 `json:"fees"`
	Net        float64 `json:"net"`
	ROIPct     float64 `json:"roi_pct"`
}

// ProfitTable computes one row per investment. feePct is charged on both
// sides of the trade.
func ProfitTable(o models.Opportunity, feePct float64, investments []int64) []ProfitRow {
	buy := decimal.NewFromFloat(o.BuyPrice)
	sell := decimal.NewFromFloat(o.SellPrice)
	feeRate := decimal.NewFromFloat(feePct).Div(decimal.NewFromInt(100))
	two := decimal.NewFromInt(2)
	hundred := decimal.NewFromInt(100)

	rows := make([]ProfitRow, 0, len(investments))
	for _, amount := range investments {
		inv := decimal.NewFromInt(amount)
		units := inv.Div(buy)
		value := units.Mul(sell)
		gross := value.Sub(inv)
		fees := feeRate.Mul(inv).Mul(two)
		net := gross.Sub(fees)

		roi := decimal.Zero
		if amount > 0 {
			roi = net.Div(inv).Mul(hundred)
		}

		rows = append(rows, ProfitRow{
			Investment: inv.InexactFloat64(),
			Units:      units.Round(4).InexactFloat64(),
			Value:      value.Round(2).InexactFloat64(),
			Gross:      gross.Round(2).InexactFloat64(),
			Fees:       fees.Round(2).InexactFloat64(),
			Net:        net.Round(2).InexactFloat64(),
			ROIPct:     roi.Round(2).InexactFloat64(),
		})
	}
	return rows
}
