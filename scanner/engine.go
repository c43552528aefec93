// Package scanner runs the periodic scan loop: refresh the universe, fetch
// tickers per exchange, normalize, detect and aggregate, then publish one
// immutable Snapshot that readers load without blocking the worker.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"Spotter/arbitrage"
	"Spotter/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const publishTimeout = 30 * time.Second

// MarketData is the subset of the market data client the engine uses.
type MarketData interface {
	FetchUniverse(ctx context.Context, topTokens, topExchanges int) (models.Universe, error)
	AllTickers(ctx context.Context, exchangeID string) ([]json.RawMessage, error)
}

// UniverseStore persists the universe between restarts.
type UniverseStore interface {
	Load(now time.Time) (models.Universe, bool)
	Save(u models.Universe, now time.Time) error
}

// Publisher receives every snapshot after it becomes current.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *models.Snapshot) error
}

// ErrorReporter is told about scan failures an operator should see.
type ErrorReporter interface {
	ReportError(ctx context.Context, err error)
}

// Config holds engine configuration.
type Config struct {
	Interval         time.Duration
	MinProfitPct     float64
	RefreshEvery     int
	TopTokens        int
	TopExchanges     int
	FetchConcurrency int
	Quote            string
	Location         *time.Location
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:         120 * time.Second,
		MinProfitPct:     0.5,
		RefreshEvery:     60,
		TopTokens:        100,
		TopExchanges:     10,
		FetchConcurrency: 4,
		Quote:            "USDT",
		Location:         time.UTC,
	}
}

// Status is the reader-facing engine state.
type Status struct {
	Running          bool
	LastScanTime     *time.Time
	OpportunityCount int
	Iteration        int64
	SnapshotID       string
}

// Engine owns the scan loop and the current Snapshot.
type Engine struct {
	cfg        Config
	market     MarketData
	store      UniverseStore
	normalizer Normalizer
	publishers []Publisher
	reporter   ErrorReporter
	logger     *slog.Logger
	now        func() time.Time

	running   atomic.Bool
	iteration atomic.Int64
	snapshot  atomic.Pointer[models.Snapshot]
	universe  atomic.Pointer[models.Universe]

	scanMu sync.Mutex
	closed bool // guarded by scanMu
}

// New creates an Engine in the running state. store may be nil.
func New(cfg Config, market MarketData, store UniverseStore, logger *slog.Logger, publishers ...Publisher) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}
	if cfg.RefreshEvery < 1 {
		cfg.RefreshEvery = 1
	}
	logger = logger.With("component", "scanner")

	e := &Engine{
		cfg:    cfg,
		market: market,
		store:  store,
		normalizer: Normalizer{
			Quote:    cfg.Quote,
			Location: cfg.Location,
			Logger:   logger,
		},
		publishers: publishers,
		logger:     logger,
		now:        time.Now,
	}
	e.running.Store(true)
	e.universe.Store(&models.Universe{})
	return e
}

// SetErrorReporter registers r for failed refreshes, passes where every
// exchange failed and recovered panics. Call it before Run.
func (e *Engine) SetErrorReporter(r ErrorReporter) {
	e.reporter = r
}

// Run schedules a scan every Interval, the first one immediately, and blocks
// until ctx is cancelled. An in-flight scan is allowed to finish and publish.
func (e *Engine) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	e.scanMu.Lock()
	e.closed = false
	e.scanMu.Unlock()

	scanCtx := context.WithoutCancel(ctx)
	_, err = s.NewJob(
		gocron.DurationJob(e.cfg.Interval),
		gocron.NewTask(func() { e.tick(scanCtx) }),
		gocron.WithName("arbitrage-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule scan job: %w", err)
	}

	s.Start()
	e.logger.Info("starting background arbitrage scan",
		"interval", e.cfg.Interval,
		"min_profit_pct", e.cfg.MinProfitPct,
		"refresh_every", e.cfg.RefreshEvery,
	)

	<-ctx.Done()

	if err := s.Shutdown(); err != nil {
		e.logger.Error("scheduler shutdown", "err", err)
	}
	// Wait out a scan the scheduler gave up on and refuse later ticks.
	e.scanMu.Lock()
	e.closed = true
	e.scanMu.Unlock()
	e.logger.Info("scan loop stopped")
	return nil
}

// tick is the Idle to Scanning boundary where the run flag is honoured.
func (e *Engine) tick(ctx context.Context) {
	if !e.running.Load() {
		e.logger.Debug("scan skipped, engine stopped")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scan panicked", "panic", r)
			e.reportError(ctx, fmt.Errorf("scan panicked: %v", r))
		}
	}()

	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	if e.closed {
		return
	}
	e.scan(ctx)
}

// Stop pauses scanning from the next tick on. A scan in progress completes.
func (e *Engine) Stop() {
	if e.running.Swap(false) {
		e.logger.Info("continuous arbitrage scan stopped")
	}
}

// Restart resumes scanning from the next tick on.
func (e *Engine) Restart() {
	if !e.running.Swap(true) {
		e.logger.Info("continuous arbitrage scan restarted")
	}
}

// Running reports the run flag.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Latest returns the current snapshot, or nil before the first scan. The
// result is shared and must not be modified.
func (e *Engine) Latest() *models.Snapshot {
	return e.snapshot.Load()
}

// LatestOpportunities returns a copy of the current opportunities.
func (e *Engine) LatestOpportunities() []models.Opportunity {
	snap := e.snapshot.Load()
	if snap == nil {
		return []models.Opportunity{}
	}
	out := make([]models.Opportunity, len(snap.Opportunities))
	copy(out, snap.Opportunities)
	return out
}

// Status reports the run flag and the current snapshot's metadata.
func (e *Engine) Status() Status {
	st := Status{Running: e.running.Load()}
	if snap := e.snapshot.Load(); snap != nil {
		ts := snap.Timestamp
		st.LastScanTime = &ts
		st.OpportunityCount = len(snap.Opportunities)
		st.Iteration = snap.Iteration
		st.SnapshotID = snap.ID
	}
	return st
}

// Universe returns the universe in use.
func (e *Engine) Universe() models.Universe {
	return *e.universe.Load()
}

// ScanOnce runs one full pass and publishes its snapshot.
func (e *Engine) ScanOnce(ctx context.Context) *models.Snapshot {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()
	return e.scan(ctx)
}

// scan runs one pass. The caller holds scanMu.
func (e *Engine) scan(ctx context.Context) *models.Snapshot {
	start := e.now()
	iter := e.iteration.Load()

	if u := e.Universe(); u.Empty() || iter%int64(e.cfg.RefreshEvery) == 0 {
		e.refreshUniverse(ctx, u.Empty())
	}
	u := e.Universe()

	slots, failed := e.fetchAll(ctx, u.Exchanges)
	if failed > 0 && failed == len(slots) {
		e.reportError(ctx, fmt.Errorf("all %d exchanges failed to return tickers", failed))
	}
	batch, nstats := e.normalizer.Normalize(u.TokenSet(), slots)
	aggregates := arbitrage.Aggregate(batch)
	opps := arbitrage.Detect(batch, e.cfg.MinProfitPct)

	finished := e.now()
	snap := &models.Snapshot{
		ID:            uuid.NewString(),
		Iteration:     iter,
		Batch:         batch,
		Opportunities: opps,
		Aggregates:    aggregates,
		Stats: models.ScanStats{
			ExchangesOK:     len(slots) - failed,
			ExchangesFailed: failed,
			Kept:            nstats.Kept,
			Filtered:        nstats.Filtered,
			Malformed:       nstats.Malformed,
			Invalid:         nstats.Invalid,
			Duration:        finished.Sub(start),
		},
		Timestamp: finished,
	}
	e.snapshot.Store(snap)
	e.iteration.Add(1)

	e.logger.Info("scan complete",
		"iteration", iter,
		"snapshot", snap.ID,
		"exchanges_ok", snap.Stats.ExchangesOK,
		"exchanges_failed", failed,
		"records", nstats.Kept,
		"discarded_malformed", nstats.Malformed,
		"discarded_invalid", nstats.Invalid,
		"opportunities", len(opps),
		"duration", snap.Stats.Duration,
	)
	for _, a := range aggregates {
		e.logger.Debug("exchange stats",
			"exchange", a.Exchange,
			"last_price_mean", a.MeanPrice,
			"last_vol_mean", a.MeanVolume,
			"spread_mean", a.MeanSpread,
			"num_trades", a.TradeCount,
		)
	}

	e.publish(ctx, snap)
	return snap
}

// refreshUniverse replaces the universe wholesale. When cacheFirst is set a
// fresh cache file is used instead of the provider. Failures keep the
// previous universe.
func (e *Engine) refreshUniverse(ctx context.Context, cacheFirst bool) {
	if cacheFirst && e.store != nil {
		if u, ok := e.store.Load(e.now()); ok {
			e.universe.Store(&u)
			return
		}
	}

	e.logger.Info("refreshing top tokens and exchanges")
	u, err := e.market.FetchUniverse(ctx, e.cfg.TopTokens, e.cfg.TopExchanges)
	if err != nil {
		e.logger.Error("universe refresh failed, keeping previous universe", "err", err)
		e.reportError(ctx, fmt.Errorf("universe refresh: %w", err))
		return
	}
	if u.Empty() {
		e.logger.Warn("provider returned an empty universe, keeping previous universe")
		return
	}
	e.universe.Store(&u)

	if e.store != nil {
		if err := e.store.Save(u, e.now()); err != nil {
			e.logger.Error("save universe cache", "err", err)
		}
	}
}

// fetchAll fetches every exchange concurrently. Each task owns its slot; a
// failed exchange contributes no tickers.
func (e *Engine) fetchAll(ctx context.Context, exchanges []models.Exchange) ([]ExchangeTickers, int) {
	slots := make([]ExchangeTickers, len(exchanges))
	var failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(e.cfg.FetchConcurrency)
	for i, ex := range exchanges {
		g.Go(func() error {
			slots[i].Exchange = ex.ID
			raw, err := e.market.AllTickers(ctx, ex.ID)
			if err != nil {
				e.logger.Error("failed to fetch tickers", "exchange", ex.ID, "err", err)
				failed.Add(1)
				return nil
			}
			slots[i].Raw = raw
			return nil
		})
	}
	_ = g.Wait()

	return slots, int(failed.Load())
}

func (e *Engine) publish(ctx context.Context, snap *models.Snapshot) {
	for _, p := range e.publishers {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := p.Publish(pctx, snap)
		cancel()
		if err != nil {
			e.logger.Error("publish snapshot",
				"publisher", p.Name(),
				"snapshot", snap.ID,
				"err", err,
			)
		}
	}
}

func (e *Engine) reportError(ctx context.Context, err error) {
	if e.reporter == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	e.reporter.ReportError(rctx, err)
}
