package notify

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"Spotter/models"
	"Spotter/scanner"
)

const (
	pollTimeout = 50 * time.Second
	pollBackoff = 5 * time.Second
	welcomeText = "Welcome to the Crypto Arbitrage Bot! 📈\n" +
		"This bot monitors top tokens across major exchanges for arbitrage opportunities.\n" +
		"Use /subscribe to receive auto-loop alerts.\n" +
		"Use /unsubscribe to stop receiving alerts.\n" +
		"Use /scan_opportunities to check manually (uses latest cached data).\n" +
		"Use /status to check bot status.\n" +
		"Admins: Use /stop or /restart for the continuous scan."
	noOppsText = "No arbitrage opportunities found above threshold. 📉"
)

// Poller is the Telegram API surface the bot needs.
type Poller interface {
	Sender
	Updates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Controller is the scan engine as seen by bot commands.
type Controller interface {
	Stop()
	Restart()
	Status() scanner.Status
	LatestOpportunities() []models.Opportunity
}

// BotConfig configures the command handler.
type BotConfig struct {
	AdminChatID int64
	Quote       string
	Location    *time.Location
}

// Bot answers Telegram commands by long polling.
type Bot struct {
	api    Poller
	subs   *Subscriptions
	engine Controller
	cfg    BotConfig
	logger *slog.Logger
}

// NewBot creates a command handler.
func NewBot(api Poller, subs *Subscriptions, engine Controller, cfg BotConfig, logger *slog.Logger) *Bot {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Bot{
		api:    api,
		subs:   subs,
		engine: engine,
		cfg:    cfg,
		logger: logger.With("component", "bot"),
	}
}

// Run polls for commands until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot started", "subscribers", b.subs.Len())

	var offset int64
	for {
		updates, err := b.api.Updates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("telegram bot stopped")
				return
			}
			b.logger.Error("telegram poll failed", "err", err)
			select {
			case <-ctx.Done():
				b.logger.Info("telegram bot stopped")
				return
			case <-time.After(pollBackoff):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			b.handle(ctx, u.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *Message) {
	cmd := command(msg.Text)
	if cmd == "" {
		return
	}
	chatID := msg.Chat.ID
	b.logger.Debug("command received", "command", cmd, "chat_id", chatID)

	var reply string
	switch cmd {
	case "start":
		reply = welcomeText
	case "subscribe":
		if err := b.subs.Add(chatID); err != nil {
			b.logger.Error("save subscriptions", "err", err)
		}
		reply = "Subscribed to arbitrage alerts!"
	case "unsubscribe":
		if err := b.subs.Remove(chatID); err != nil {
			b.logger.Error("save subscriptions", "err", err)
		}
		reply = "Unsubscribed from arbitrage alerts."
	case "stop":
		if !b.isAdmin(chatID) {
			reply = "Only admins can stop the bot."
			break
		}
		b.engine.Stop()
		reply = "Continuous arbitrage scan stopped. Use /restart to resume."
	case "restart":
		if !b.isAdmin(chatID) {
			reply = "Only admins can restart the bot."
			break
		}
		b.engine.Restart()
		reply = "Continuous arbitrage scan restarted."
	case "status":
		reply = b.statusText()
	case "scan_opportunities":
		opps := b.engine.LatestOpportunities()
		if len(opps) == 0 {
			reply = noOppsText
		} else {
			reply = FormatOpportunities(opps, b.cfg.Quote)
		}
	case "getid":
		b.logger.Info("chat id requested", "chat_id", chatID)
		reply = "Your chat ID is: " + strconv.FormatInt(chatID, 10)
	default:
		return
	}

	if err := b.api.Send(ctx, chatID, reply); err != nil {
		b.logger.Error("telegram reply failed", "command", cmd, "chat_id", chatID, "err", err)
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	return b.cfg.AdminChatID != 0 && chatID == b.cfg.AdminChatID
}

func (b *Bot) statusText() string {
	st := b.engine.Status()

	running := "No"
	if st.Running {
		running = "Yes"
	}
	last := "No scan yet"
	if st.LastScanTime != nil {
		last = st.LastScanTime.In(b.cfg.Location).Format(time.DateTime)
	}

	var sb strings.Builder
	sb.WriteString("Bot Status:\n")
	sb.WriteString("Running: " + running + "\n")
	sb.WriteString("Last Scan: " + last + "\n")
	sb.WriteString("Opportunities: " + strconv.FormatInt(int64(st.OpportunityCount), 10) + "\n")
	sb.WriteString("Subscribers: " + strconv.FormatInt(int64(b.subs.Len()), 10) + "\n")
	return sb.String()
}

// command extracts "status" from "/status@arb_bot extra".
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
