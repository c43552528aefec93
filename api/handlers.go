package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"Spotter/models"

	"github.com/gin-gonic/gin"
)

const adminHeader = "X-Admin-Token"

var noOpportunities = gin.H{"message": "No opportunities found"}

func (h *handler) health(c *gin.Context) {
	code := http.StatusOK
	status := "healthy"
	checks := gin.H{}
	for name, p := range h.opts.Checks {
		if err := p.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", "check", name, "err", err)
			checks[name] = "disconnected"
			code = http.StatusServiceUnavailable
			status = "unhealthy"
			continue
		}
		checks[name] = "connected"
	}

	var age any
	if snap := h.engine.Latest(); snap != nil {
		age = h.now().Sub(snap.Timestamp).Seconds()
	}

	c.JSON(code, gin.H{
		"status":                status,
		"running":               h.engine.Status().Running,
		"last_scan_age_seconds": age,
		"checks":                checks,
	})
}

// arbitrage lists the current opportunities.
// Query: token, exchange (either side), minDiffPerc, limit.
func (h *handler) arbitrage(c *gin.Context) {
	token := c.Query("token")
	exchange := c.Query("exchange")

	minDiff := 0.0
	if v := c.Query("minDiffPerc"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minDiffPerc", "details": err.Error()})
			return
		}
		minDiff = f
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	opps := h.engine.LatestOpportunities()
	filtered := opps[:0]
	for _, o := range opps {
		if token != "" && !strings.EqualFold(o.Token, token) {
			continue
		}
		if exchange != "" && !strings.EqualFold(o.BuyExchange, exchange) && !strings.EqualFold(o.SellExchange, exchange) {
			continue
		}
		if o.PriceDiffPct < minDiff {
			continue
		}
		filtered = append(filtered, o)
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	if len(filtered) == 0 {
		c.JSON(http.StatusOK, noOpportunities)
		return
	}
	c.JSON(http.StatusOK, filtered)
}

func (h *handler) status(c *gin.Context) {
	st := h.engine.Status()

	var last any
	if st.LastScanTime != nil {
		last = float64(st.LastScanTime.UnixNano()) / 1e9
	}

	c.JSON(http.StatusOK, gin.H{
		"running":             st.Running,
		"last_scan_time":      last,
		"opportunities_count": st.OpportunityCount,
		"iteration":           st.Iteration,
		"snapshot_id":         st.SnapshotID,
	})
}

func (h *handler) aggregates(c *gin.Context) {
	snap := h.engine.Latest()
	if snap == nil {
		c.JSON(http.StatusOK, []models.ExchangeAggregate{})
		return
	}
	c.JSON(http.StatusOK, snap.Aggregates)
}

func (h *handler) tickers(c *gin.Context) {
	out := []models.Ticker{}
	snap := h.engine.Latest()
	if snap == nil {
		c.JSON(http.StatusOK, out)
		return
	}

	token := c.Query("token")
	for _, t := range snap.Batch {
		if token == "" || strings.EqualFold(t.Token, token) {
			out = append(out, t)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) universe(c *gin.Context) {
	u := h.engine.Universe()
	if u.Tokens == nil {
		u.Tokens = []string{}
	}
	if u.Exchanges == nil {
		u.Exchanges = []models.Exchange{}
	}
	c.JSON(http.StatusOK, u)
}

// profit runs the investment table on the best current opportunity.
// Query: fee, the total fee percentage per side (default 0.2).
func (h *handler) profit(c *gin.Context) {
	fee, err := strconv.ParseFloat(c.DefaultQuery("fee", "0.2"), 64)
	if err != nil || fee < 0 || fee > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fee must be a percentage between 0 and 100"})
		return
	}

	opps := h.engine.LatestOpportunities()
	if len(opps) == 0 {
		c.JSON(http.StatusNotFound, noOpportunities)
		return
	}
	best := opps[0]

	c.JSON(http.StatusOK, gin.H{
		"opportunity": best,
		"fee_pct":     fee,
		"rows":        ProfitTable(best, fee, DefaultInvestments),
	})
}

func (h *handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.opts.AdminToken == "" {
			c.Next()
			return
		}
		got := c.GetHeader(adminHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.AdminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
