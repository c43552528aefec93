package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"Spotter/models"
)

type exchangeResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	TradeVolume24hBTC float64 `json:"trade_volume_24h_btc"`
}

type coinMarketResponse struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

type tickersResponse struct {
	Name    string            `json:"name"`
	Tickers []json.RawMessage `json:"tickers"`
}

// Ticker is the provider's ticker shape. Pointer fields distinguish an absent
// value from zero.
type Ticker struct {
	Base                   string   `json:"base"`
	Target                 string   `json:"target"`
	Last                   *float64 `json:"last"`
	Volume                 *float64 `json:"volume"`
	BidAskSpreadPercentage *float64 `json:"bid_ask_spread_percentage"`
	LastTradedAt           string   `json:"last_traded_at"`
}

// Exchanges returns the topN exchanges ranked by 24h BTC trading volume.
func (c *Client) Exchanges(ctx context.Context, topN int) ([]models.Exchange, error) {
	query := url.Values{}
	query.Set("per_page", "250")
	query.Set("page", "1")

	var resp []exchangeResponse
	if err := c.get(ctx, "/exchanges", query, &resp); err != nil {
		return nil, fmt.Errorf("get exchanges: %w", err)
	}

	sort.SliceStable(resp, func(i, j int) bool {
		return resp[i].TradeVolume24hBTC > resp[j].TradeVolume24hBTC
	})
	if topN < len(resp) {
		resp = resp[:topN]
	}

	exchanges := make([]models.Exchange, 0, len(resp))
	for _, ex := range resp {
		if ex.ID == "" {
			continue
		}
		exchanges = append(exchanges, models.Exchange{
			ID:                ex.ID,
			Name:              ex.Name,
			TradeVolume24hBTC: ex.TradeVolume24hBTC,
		})
	}
	return exchanges, nil
}

// TopTokens returns the uppercased symbols of the top n coins by 24h volume.
func (c *Client) TopTokens(ctx context.Context, n int) ([]string, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "volume_desc")
	query.Set("per_page", strconv.Itoa(n))
	query.Set("page", "1")

	var resp []coinMarketResponse
	if err := c.get(ctx, "/coins/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get top tokens: %w", err)
	}

	seen := make(map[string]struct{}, len(resp))
	tokens := make([]string, 0, len(resp))
	for _, coin := range resp {
		symbol := strings.ToUpper(strings.TrimSpace(coin.Symbol))
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		tokens = append(tokens, symbol)
	}
	return tokens, nil
}

// AllTickers returns every ticker listed for one exchange, undecoded.
func (c *Client) AllTickers(ctx context.Context, exchangeID string) ([]json.RawMessage, error) {
	var resp tickersResponse
	path := "/exchanges/" + url.PathEscape(exchangeID) + "/tickers"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get tickers %s: %w", exchangeID, err)
	}
	return resp.Tickers, nil
}

// FetchUniverse fetches a fresh universe from the provider.
func (c *Client) FetchUniverse(ctx context.Context, topTokens, topExchanges int) (models.Universe, error) {
	tokens, err := c.TopTokens(ctx, topTokens)
	if err != nil {
		return models.Universe{}, err
	}
	exchanges, err := c.Exchanges(ctx, topExchanges)
	if err != nil {
		return models.Universe{}, err
	}
	return models.Universe{Tokens: tokens, Exchanges: exchanges}, nil
}
