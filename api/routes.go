package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"Spotter/models"
	"Spotter/scanner"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Engine is the read and control surface of the scan engine.
type Engine interface {
	Latest() *models.Snapshot
	LatestOpportunities() []models.Opportunity
	Status() scanner.Status
	Universe() models.Universe
	Stop()
	Restart()
}

// Pinger is a dependency checked by /api/health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	AdminToken  string
	Hub         *Hub
	Checks      map[string]Pinger
	Logger      *slog.Logger
}

type handler struct {
	engine Engine
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// SetupRouter creates the API routes.
func SetupRouter(engine Engine, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handler{
		engine: engine,
		opts:   opts,
		logger: logger.With("component", "api"),
		now:    time.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", adminHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Arbitrage API is running!"})
	})
	router.GET("/api/health", h.health)

	router.GET("/arbitrage", h.arbitrage)
	router.GET("/status", h.status)
	router.GET("/aggregates", h.aggregates)
	router.GET("/tickers", h.tickers)
	router.GET("/universe", h.universe)
	router.GET("/profit", h.profit)

	control := router.Group("/control", h.requireAdmin())
	control.POST("/stop", func(c *gin.Context) {
		h.engine.Stop()
		c.JSON(http.StatusOK, gin.H{"running": false, "message": "Continuous arbitrage scan stopped."})
	})
	control.POST("/restart", func(c *gin.Context) {
		h.engine.Restart()
		c.JSON(http.StatusOK, gin.H{"running": true, "message": "Continuous arbitrage scan restarted."})
	})

	if opts.Hub != nil {
		router.GET("/ws", gin.WrapF(opts.Hub.HandleWS))
	}

	return router
}

func (h *handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
