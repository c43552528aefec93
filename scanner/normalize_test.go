package scanner

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func tokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func TestNormalize(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	n := Normalizer{Quote: "USDT", Location: lagos, Logger: discardLogger()}

	slots := []ExchangeTickers{
		{
			Exchange: "binance",
			Raw: raws(
				`{"base":"btc","target":"USDT","last":100.5,"volume":12,"bid_ask_spread_percentage":0.01,"last_traded_at":"2024-03-01T10:00:00+00:00"}`,
				`{"base":"ETH","target":"BTC","last":0.05}`,
				`{"base":"DOGE","target":"USDT","last":0.1}`,
				`not json`,
			),
		},
		{
			Exchange: "kraken",
			Raw: raws(
				`{"base":"ETH","target":"usdt","last":2000}`,
				`{"base":"ETH","target":"USDT"}`,
				`{"base":"ETH","target":"USDT","last":0}`,
				`{"base":"ETH","target":"USDT","last":10,"volume":-1}`,
				`{"base":"ETH","target":"USDT","last":"abc"}`,
			),
		},
	}

	batch, stats := n.Normalize(tokenSet("BTC", "ETH"), slots)

	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2: %+v", len(batch), batch)
	}
	if stats.Kept != 2 || stats.Filtered != 2 || stats.Malformed != 2 || stats.Invalid != 3 {
		t.Errorf("stats = %+v, want kept 2 filtered 2 malformed 2 invalid 3", stats)
	}

	btc := batch[0]
	if btc.Exchange != "binance" || btc.Token != "BTC" || btc.Price != 100.5 || btc.Volume != 12 || btc.Spread != 0.01 {
		t.Errorf("btc = %+v", btc)
	}
	if btc.TradeTime == nil {
		t.Fatal("btc trade time not set")
	}
	if got := btc.TradeTime.Location().String(); got != "Africa/Lagos" {
		t.Errorf("trade time location = %s, want Africa/Lagos", got)
	}
	if got := btc.TradeTime.Hour(); got != 11 {
		t.Errorf("trade time hour = %d, want 11", got)
	}

	eth := batch[1]
	if eth.Exchange != "kraken" || eth.Token != "ETH" || eth.Price != 2000 {
		t.Errorf("eth = %+v", eth)
	}
	if eth.Volume != 0 || eth.Spread != 0 || eth.TradeTime != nil {
		t.Errorf("eth optional fields = %+v, want zero values", eth)
	}
}

func TestNormalizeBadTradeTime(t *testing.T) {
	n := Normalizer{Quote: "USDT", Location: time.UTC, Logger: discardLogger()}
	slots := []ExchangeTickers{{
		Exchange: "gdax",
		Raw:      raws(`{"base":"BTC","target":"USDT","last":1,"last_traded_at":"yesterday"}`),
	}}

	batch, stats := n.Normalize(tokenSet("BTC"), slots)
	if stats.Kept != 1 {
		t.Fatalf("stats = %+v, want one kept record", stats)
	}
	if batch[0].TradeTime != nil {
		t.Errorf("TradeTime = %v, want nil", batch[0].TradeTime)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	n := Normalizer{Quote: "USDT"}

	batch, stats := n.Normalize(tokenSet("BTC"), nil)
	if batch == nil || len(batch) != 0 {
		t.Errorf("batch = %#v, want empty non-nil slice", batch)
	}
	if stats != (NormalizeStats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}
