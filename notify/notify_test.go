package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"Spotter/models"
	"Spotter/scanner"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOpps() []models.Opportunity {
	return []models.Opportunity{{
		Token:            "BTC",
		BuyExchange:      "binance",
		BuyPrice:         100,
		SellExchange:     "kraken",
		SellPrice:        105.5,
		PriceDiffPct:     5.5,
		ProfitPer1000USD: 55,
	}}
}

type sent struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[int64]bool
	updates [][]Update
	polls   int
}

func (f *fakeAPI) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("chat not found")
	}
	f.sent = append(f.sent, sent{chatID, text})
	return nil
}

func (f *fakeAPI) Updates(ctx context.Context, _ int64, _ time.Duration) ([]Update, error) {
	f.mu.Lock()
	if f.polls < len(f.updates) {
		u := f.updates[f.polls]
		f.polls++
		f.mu.Unlock()
		return u, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeAPI) replies() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fakeController struct {
	running bool
	opps    []models.Opportunity
	last    *time.Time
}

func (f *fakeController) Stop()    { f.running = false }
func (f *fakeController) Restart() { f.running = true }
func (f *fakeController) Status() scanner.Status {
	return scanner.Status{Running: f.running, LastScanTime: f.last, OpportunityCount: len(f.opps)}
}
func (f *fakeController) LatestOpportunities() []models.Opportunity { return f.opps }

func newSubs(t *testing.T, ids ...int64) *Subscriptions {
	t.Helper()
	subs, err := LoadSubscriptions(filepath.Join(t.TempDir(), "subscriptions.json"))
	if err != nil {
		t.Fatalf("LoadSubscriptions() error = %v", err)
	}
	for _, id := range ids {
		if err := subs.Add(id); err != nil {
			t.Fatalf("Add(%d) error = %v", id, err)
		}
	}
	return subs
}

func TestFormatOpportunities(t *testing.T) {
	got := FormatOpportunities(sampleOpps(), "USDT")
	want := "⚡ Arbitrage Opportunities Found! 📈\n\n" +
		"💸 Token: BTC\n" +
		"💰 Buy: binance @ 100.000000 USDT\n" +
		"💰 Sell: kraken @ 105.500000 USDT\n" +
		"📈 Price Diff: 5.50%\n" +
		"💵 Profit/$1000: 55.00 USDT\n\n"
	if got != want {
		t.Errorf("FormatOpportunities() =\n%s\nwant\n%s", got, want)
	}
}

func TestSubscriptionsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.json")

	subs, err := LoadSubscriptions(path)
	if err != nil {
		t.Fatalf("LoadSubscriptions() error = %v", err)
	}
	if subs.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for a missing file", subs.Len())
	}

	for _, id := range []int64{42, 7, 42} {
		if err := subs.Add(id); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := subs.Remove(99); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "[7,42]" {
		t.Errorf("file = %s, want [7,42]", data)
	}

	reloaded, err := LoadSubscriptions(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got := reloaded.List(); len(got) != 2 || got[0] != 7 || got[1] != 42 {
		t.Errorf("List() = %v, want [7 42]", got)
	}
}

func TestLoadSubscriptionsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSubscriptions(path); err == nil {
		t.Error("LoadSubscriptions() succeeded on a corrupt file")
	}
}

func TestAlerterPublish(t *testing.T) {
	api := &fakeAPI{failFor: map[int64]bool{2: true}}
	a := NewAlerter(api, newSubs(t, 1, 2, 3), "USDT", discardLogger())

	err := a.Publish(context.Background(), &models.Snapshot{Opportunities: sampleOpps()})
	if err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Errorf("Publish() error = %v, want one failed chat", err)
	}

	got := api.replies()
	if len(got) != 2 || got[0].chatID != 1 || got[1].chatID != 3 {
		t.Fatalf("sent = %+v, want chats 1 and 3", got)
	}
	if !strings.Contains(got[0].text, "Token: BTC") {
		t.Errorf("text = %q", got[0].text)
	}
}

func TestAlerterSkipsEmptySnapshots(t *testing.T) {
	api := &fakeAPI{}
	a := NewAlerter(api, newSubs(t, 1), "USDT", discardLogger())
	if err := a.Publish(context.Background(), &models.Snapshot{}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(api.replies()) != 0 {
		t.Error("message sent for a snapshot without opportunities")
	}
}

func TestAdminAlerter(t *testing.T) {
	api := &fakeAPI{}
	NewAdminAlerter(api, 100, discardLogger()).ReportError(context.Background(), errors.New("universe refresh: provider down"))

	got := api.replies()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
	if got[0].chatID != 100 || got[0].text != "Bot Error Alert: universe refresh: provider down" {
		t.Errorf("sent = %+v", got[0])
	}
}

func TestAdminAlerterDisabled(t *testing.T) {
	api := &fakeAPI{}
	NewAdminAlerter(api, 0, discardLogger()).ReportError(context.Background(), errors.New("boom"))
	if len(api.replies()) != 0 {
		t.Error("alert sent without an admin chat")
	}
}

func TestAdminAlerterSendFailure(t *testing.T) {
	api := &fakeAPI{failFor: map[int64]bool{100: true}}
	NewAdminAlerter(api, 100, discardLogger()).ReportError(context.Background(), errors.New("boom"))
	if len(api.replies()) != 0 {
		t.Error("failed send recorded as delivered")
	}
}

func TestCommand(t *testing.T) {
	tests := map[string]string{
		"/status":                "status",
		"/Subscribe@arb_bot now": "subscribe",
		"hello":                  "",
		"":                       "",
	}
	for in, want := range tests {
		if got := command(in); got != want {
			t.Errorf("command(%q) = %q, want %q", in, got, want)
		}
	}
}

func message(updateID, chatID int64, text string) Update {
	m := &Message{Text: text}
	m.Chat.ID = chatID
	return Update{UpdateID: updateID, Message: m}
}

func runBot(t *testing.T, api *fakeAPI, bot *Bot, wantReplies int) []sent {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bot.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(api.replies()) < wantReplies && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	return api.replies()
}

func TestBotCommands(t *testing.T) {
	const admin = 100
	api := &fakeAPI{updates: [][]Update{{
		message(1, 5, "/start"),
		message(2, 5, "/subscribe"),
		message(3, 5, "/stop"),
		message(4, admin, "/stop"),
		message(5, 5, "/scan_opportunities"),
		message(6, 5, "/getid"),
		message(7, 5, "/unknown"),
		message(8, 5, "/unsubscribe"),
	}}}
	subs := newSubs(t)
	engine := &fakeController{running: true, opps: sampleOpps()}
	bot := NewBot(api, subs, engine, BotConfig{AdminChatID: admin, Quote: "USDT"}, discardLogger())

	got := runBot(t, api, bot, 7)
	if len(got) != 7 {
		t.Fatalf("got %d replies, want 7: %+v", len(got), got)
	}

	wantPrefixes := []string{
		"Welcome to the Crypto Arbitrage Bot!",
		"Subscribed to arbitrage alerts!",
		"Only admins can stop the bot.",
		"Continuous arbitrage scan stopped.",
		"⚡ Arbitrage Opportunities Found!",
		"Your chat ID is: 5",
		"Unsubscribed from arbitrage alerts.",
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(got[i].text, prefix) {
			t.Errorf("reply %d = %q, want prefix %q", i, got[i].text, prefix)
		}
	}
	if got[3].chatID != admin {
		t.Errorf("stop reply sent to %d, want %d", got[3].chatID, admin)
	}
	if engine.running {
		t.Error("admin /stop did not stop the engine")
	}
	if subs.Len() != 0 {
		t.Errorf("subscribers = %d, want 0 after /unsubscribe", subs.Len())
	}
}

func TestBotStatus(t *testing.T) {
	last := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{updates: [][]Update{{message(1, 5, "/status")}}}
	engine := &fakeController{running: false, last: &last}
	bot := NewBot(api, newSubs(t, 5, 6), engine, BotConfig{}, discardLogger())

	got := runBot(t, api, bot, 1)
	if len(got) != 1 {
		t.Fatalf("got %d replies, want 1", len(got))
	}
	want := "Bot Status:\nRunning: No\nLast Scan: 2024-03-01 10:00:00\nOpportunities: 0\nSubscribers: 2\n"
	if got[0].text != want {
		t.Errorf("status = %q, want %q", got[0].text, want)
	}
}

func TestTelegramSender(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			w.Write([]byte(`{"ok":true,"result":{}}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			w.Write([]byte(`{"ok":true,"result":[{"update_id":9,"message":{"text":"/status","chat":{"id":77}}}]}`))
		}
	}))
	defer server.Close()

	s := NewTelegramSender(server.URL, "TOKEN")

	if err := s.Send(context.Background(), 42, "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %s", gotPath)
	}
	if gotBody["chat_id"] != float64(42) || gotBody["text"] != "hi" {
		t.Errorf("body = %v", gotBody)
	}

	updates, err := s.Updates(context.Background(), 9, 30*time.Second)
	if err != nil {
		t.Fatalf("Updates() error = %v", err)
	}
	if len(updates) != 1 || updates[0].UpdateID != 9 || updates[0].Message.Chat.ID != 77 {
		t.Errorf("updates = %+v", updates)
	}
	if gotBody["offset"] != float64(9) || gotBody["timeout"] != float64(30) {
		t.Errorf("getUpdates body = %v", gotBody)
	}
}

func TestTelegramSenderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	err := NewTelegramSender(server.URL, "T").Send(context.Background(), 1, "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Send() error = %v, want API description", err)
	}
}

func TestTelegramSenderHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewTelegramSender(server.URL, "T").Updates(context.Background(), 0, time.Second)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Updates() error = %v, want status 502", err)
	}
}
