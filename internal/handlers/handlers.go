package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/ledger"
	"papertrade/internal/store"
)

// Watchlist is the slice of the Postgres store the handlers need for the
// watchlist routes. Nil when the database is unavailable; the routes then
// answer 503 while trading keeps working in-memory.
type Watchlist interface {
	GetWatchlist(ctx context.Context) ([]store.WatchlistItem, error)
	AddWatchlistItem(ctx context.Context, w store.WatchlistItem) error
	RemoveWatchlistItem(ctx context.Context, symbol string) error
}

// PersistenceStatus reports whether best-effort snapshot writes are
// reaching a store. Nil means the answer is not known to the handlers.
type PersistenceStatus interface {
	LastError() error
}

type Handler struct {
	mgr       *ledger.Manager
	watchlist Watchlist
	persist   PersistenceStatus
	log       *logrus.Logger
}

func NewHandler(mgr *ledger.Manager, watchlist Watchlist, persist PersistenceStatus, log *logrus.Logger) *Handler {
	return &Handler{mgr: mgr, watchlist: watchlist, persist: persist, log: log}
}

// persistenceWarning adds a warning field when saves are not reaching a
// store, so callers learn their trades live only in memory. Never an
// error: trading keeps working either way.
func (h *Handler) persistenceWarning(body gin.H) gin.H {
	if h.persist == nil {
		return body
	}
	if err := h.persist.LastError(); err != nil {
		body["warning"] = err.Error()
	}
	return body
}

// Register wires all routes onto the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.GET("/api/portfolio", h.GetPortfolio)
	r.POST("/api/portfolio/trade", h.PostTrade)
	r.POST("/api/portfolio/reset", h.PostReset)
	r.GET("/api/portfolio/performance", h.GetPerformance)

	r.GET("/api/watchlist", h.GetWatchlist)
	r.POST("/api/watchlist", h.PostWatchlist)
	r.DELETE("/api/watchlist/:symbol", h.DeleteWatchlist)
}

type TradeRequest struct {
	Symbol   string  `json:"symbol" binding:"required"`
	Name     string  `json:"name"`
	Type     string  `json:"type" binding:"required"`
	Action   string  `json:"action" binding:"required"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// toDecimal rejects NaN and infinities before handing the value to the
// executor; JSON cannot produce them but other callers can.
func toDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func (h *Handler) PostTrade(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid trade body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	qty, ok := toDecimal(req.Quantity)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ledger.ErrInvalidQuantity.Error()})
		return
	}
	price, ok := toDecimal(req.Price)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ledger.ErrInvalidPrice.Error()})
		return
	}

	order := ledger.Order{
		Symbol:     req.Symbol,
		Name:       req.Name,
		AssetClass: ledger.AssetClass(req.Type),
		Action:     ledger.Action(req.Action),
		Quantity:   qty,
		Price:      price,
	}

	snapshot, tx, err := h.mgr.Trade(order)
	if err != nil {
		if ledger.IsRejection(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.log.Errorf("trade failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, h.persistenceWarning(gin.H{
		"success":     true,
		"transaction": tx,
		"portfolio":   portfolioView(snapshot),
	}))
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, h.persistenceWarning(gin.H{"portfolio": portfolioView(h.mgr.Snapshot())}))
}

func (h *Handler) PostReset(c *gin.Context) {
	fresh := h.mgr.Reset()
	c.JSON(http.StatusOK, h.persistenceWarning(gin.H{"success": true, "portfolio": portfolioView(fresh)}))
}

func (h *Handler) GetPerformance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"performance": h.mgr.Performance()})
}

// portfolioView flattens the aggregate for JSON, adding the live total.
func portfolioView(p ledger.Portfolio) gin.H {
	return gin.H{
		"balance":         p.CashBalance,
		"startingBalance": p.StartingBalance,
		"baseCurrency":    p.BaseCurrency,
		"createdAt":       p.CreatedAt,
		"totalValue":      p.TotalValue(),
		"holdings":        p.Holdings,
		"transactions":    p.Transactions,
	}
}

type WatchlistRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Name   string `json:"name"`
	Type   string `json:"type" binding:"required"`
}

func (h *Handler) GetWatchlist(c *gin.Context) {
	if h.watchlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "watchlist storage unavailable"})
		return
	}
	items, err := h.watchlist.GetWatchlist(c.Request.Context())
	if err != nil {
		h.log.Errorf("get watchlist failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": items})
}

func (h *Handler) PostWatchlist(c *gin.Context) {
	if h.watchlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "watchlist storage unavailable"})
		return
	}
	var req WatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !ledger.AssetClass(req.Type).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": ledger.ErrInvalidAssetClass.Error()})
		return
	}
	item := store.WatchlistItem{
		Symbol:     req.Symbol,
		Name:       req.Name,
		AssetClass: req.Type,
		AddedAt:    time.Now().UTC(),
	}
	if err := h.watchlist.AddWatchlistItem(c.Request.Context(), item); err != nil {
		h.log.Errorf("add watchlist item failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insert failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (h *Handler) DeleteWatchlist(c *gin.Context) {
	if h.watchlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "watchlist storage unavailable"})
		return
	}
	if err := h.watchlist.RemoveWatchlistItem(c.Request.Context(), c.Param("symbol")); err != nil {
		h.log.Errorf("remove watchlist item failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
