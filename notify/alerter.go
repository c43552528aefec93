package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"Spotter/models"
)

// Sender delivers a text message to one chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Alerter sends every snapshot with opportunities to the subscribed chats.
type Alerter struct {
	sender Sender
	subs   *Subscriptions
	quote  string
	logger *slog.Logger
}

// NewAlerter creates an Alerter. quote labels prices in messages.
func NewAlerter(sender Sender, subs *Subscriptions, quote string, logger *slog.Logger) *Alerter {
	return &Alerter{
		sender: sender,
		subs:   subs,
		quote:  quote,
		logger: logger.With("component", "alerter"),
	}
}

// Name implements scanner.Publisher.
func (a *Alerter) Name() string { return "telegram" }

// Publish sends the opportunities message. A failed chat does not stop
// delivery to the others; the returned error counts the failures.
func (a *Alerter) Publish(ctx context.Context, snap *models.Snapshot) error {
	if len(snap.Opportunities) == 0 {
		return nil
	}
	chats := a.subs.List()
	if len(chats) == 0 {
		return nil
	}

	text := FormatOpportunities(snap.Opportunities, a.quote)
	a.logger.Debug("sending telegram message", "chats", len(chats), "text", text)

	failed := 0
	for _, id := range chats {
		if err := a.sender.Send(ctx, id, text); err != nil {
			a.logger.Error("telegram send failed", "chat_id", id, "err", err)
			failed++
			continue
		}
		a.logger.Info("telegram message sent", "chat_id", id)
	}
	if failed > 0 {
		return fmt.Errorf("telegram: %d of %d chats failed", failed, len(chats))
	}
	return nil
}

// FormatOpportunities renders the alert body.
func FormatOpportunities(opps []models.Opportunity, quote string) string {
	var b strings.Builder
	b.WriteString("⚡ Arbitrage Opportunities Found! 📈\n\n")
	for _, o := range opps {
		fmt.Fprintf(&b, "💸 Token: %s\n", o.Token)
		fmt.Fprintf(&b, "💰 Buy: %s @ %.6f %s\n", o.BuyExchange, o.BuyPrice, quote)
		fmt.Fprintf(&b, "💰 Sell: %s @ %.6f %s\n", o.SellExchange, o.SellPrice, quote)
		fmt.Fprintf(&b, "📈 Price Diff: %.2f%%\n", o.PriceDiffPct)
		fmt.Fprintf(&b, "💵 Profit/$1000: %.2f %s\n\n", o.ProfitPer1000USD, quote)
	}
	return b.String()
}
