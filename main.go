package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"Spotter/api"
	"Spotter/cache"
	"Spotter/config"
	"Spotter/db"
	"Spotter/exchanges/coingecko"
	"Spotter/notify"
	"Spotter/scanner"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("error loading configuration", "path", *configPath, "err", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("exited with error", "err", err)
		os.Exit(1)
	}
	logger.Info("arbitrage spotter stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Scan.Timezone)
	if err != nil {
		return err
	}

	client := coingecko.NewClient(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey,
		coingecko.WithTimeout(cfg.CoinGecko.Timeout.Duration),
		coingecko.WithRetries(cfg.CoinGecko.MaxRetries, cfg.CoinGecko.RetryBackoff.Duration),
		coingecko.WithRequestInterval(cfg.CoinGecko.RequestInterval.Duration),
		coingecko.WithLogger(logger),
	)
	universeCache := coingecko.NewUniverseCache(cfg.CoinGecko.CacheFile, cfg.CoinGecko.CacheTTL.Duration, logger)

	hub := api.NewHub(logger)
	publishers := []scanner.Publisher{hub}
	checks := map[string]api.Pinger{}

	// Optional PostgreSQL history
	if cfg.Database.URL != "" {
		dbConn, err := db.Connect(ctx, cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		history := db.NewHistoryStore(dbConn)
		publishers = append(publishers, history)
		checks["db"] = history
	}

	// Optional Redis mirror
	if cfg.Redis.Addr != "" {
		rc, err := cache.New(ctx, cache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rc.Close()

		mirror := cache.NewSnapshotMirror(rc, cfg.Scan.Interval.Duration)
		if prev, err := mirror.Latest(ctx); err == nil {
			logger.Info("previous snapshot found in redis",
				"snapshot", prev.ID,
				"iteration", prev.Iteration,
				"age", time.Since(prev.Timestamp).Round(time.Second),
			)
		} else if !errors.Is(err, cache.ErrNoSnapshot) {
			logger.Warn("read previous snapshot", "err", err)
		}
		publishers = append(publishers, mirror)
		checks["redis"] = rc
	}

	var (
		subs     *notify.Subscriptions
		telegram *notify.TelegramSender
	)
	if cfg.Telegram.BotToken != "" {
		subs, err = notify.LoadSubscriptions(cfg.Telegram.SubscriptionsFile)
		if err != nil {
			return err
		}
		telegram = notify.NewTelegramSender(notify.DefaultAPIURL, cfg.Telegram.BotToken)
		publishers = append(publishers, notify.NewAlerter(telegram, subs, cfg.Scan.QuoteCurrency, logger))
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, telegram bot will not start")
	}

	engine := scanner.New(scanner.Config{
		Interval:         cfg.Scan.Interval.Duration,
		MinProfitPct:     cfg.Scan.MinProfitPct,
		RefreshEvery:     cfg.Scan.RefreshEvery,
		TopTokens:        cfg.Scan.TopTokens,
		TopExchanges:     cfg.Scan.TopExchanges,
		FetchConcurrency: cfg.CoinGecko.FetchConcurrency,
		Quote:            cfg.Scan.QuoteCurrency,
		Location:         loc,
	}, client, universeCache, logger, publishers...)

	if telegram != nil && cfg.Telegram.AdminChatID != 0 {
		engine.SetErrorReporter(notify.NewAdminAlerter(telegram, cfg.Telegram.AdminChatID, logger))
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(engine, api.Options{
		CORSOrigins: cfg.API.CORSOrigins,
		AdminToken:  cfg.API.AdminToken,
		Hub:         hub,
		Checks:      checks,
		Logger:      logger,
	})
	server := &http.Server{
		Addr:              cfg.API.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	// engine.Run returns only after the last scan has published, so the
	// deferred db and redis closes run after every publisher is done.
	g.Go(func() error {
		return engine.Run(gctx)
	})
	if telegram != nil {
		bot := notify.NewBot(telegram, subs, engine, notify.BotConfig{
			AdminChatID: cfg.Telegram.AdminChatID,
			Quote:       cfg.Scan.QuoteCurrency,
			Location:    loc,
		}, logger)
		g.Go(func() error {
			bot.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("starting API server", "addr", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
