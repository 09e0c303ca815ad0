package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/ledger"
	"papertrade/internal/store"
)

type fakeWatchlist struct {
	items map[string]store.WatchlistItem
	err   error
}

func newFakeWatchlist() *fakeWatchlist {
	return &fakeWatchlist{items: map[string]store.WatchlistItem{}}
}

func (f *fakeWatchlist) GetWatchlist(ctx context.Context) ([]store.WatchlistItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := []store.WatchlistItem{}
	for _, w := range f.items {
		res = append(res, w)
	}
	return res, nil
}

func (f *fakeWatchlist) AddWatchlistItem(ctx context.Context, w store.WatchlistItem) error {
	if f.err != nil {
		return f.err
	}
	f.items[w.Symbol] = w
	return nil
}

func (f *fakeWatchlist) RemoveWatchlistItem(ctx context.Context, symbol string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.items, symbol)
	return nil
}

type fakePersistStatus struct{ err error }

func (f *fakePersistStatus) LastError() error { return f.err }

func newTestRouter(t *testing.T, watchlist Watchlist) (*gin.Engine, *ledger.Manager) {
	t.Helper()
	return newTestRouterWithPersist(t, watchlist, nil)
}

func newTestRouterWithPersist(t *testing.T, watchlist Watchlist, persist PersistenceStatus) (*gin.Engine, *ledger.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	p := ledger.NewPortfolio(decimal.RequireFromString("100000"), "USD", time.Now().UTC())
	mgr := ledger.NewManager(p, logrus.New(), nil)
	r := gin.New()
	NewHandler(mgr, watchlist, persist, logrus.New()).Register(r)
	return r, mgr
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tradeBody(action string, qty, price float64) map[string]interface{} {
	return map[string]interface{}{
		"symbol":   "AAPL",
		"name":     "Apple Inc.",
		"type":     "stock",
		"action":   action,
		"quantity": qty,
		"price":    price,
	}
}

func TestPostTradeBuy(t *testing.T) {
	r, mgr := newTestRouter(t, nil)

	w := doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10, 150))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success     bool `json:"success"`
		Transaction struct {
			ID     string `json:"id"`
			Action string `json:"action"`
		} `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Transaction.ID)
	assert.Equal(t, "buy", resp.Transaction.Action)

	snap := mgr.Snapshot()
	assert.True(t, snap.CashBalance.Equal(decimal.RequireFromString("98500")))
}

func TestPostTradeInsufficientFunds(t *testing.T) {
	r, mgr := newTestRouter(t, nil)

	w := doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10000, 150))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient balance")

	// rejected order is a no-op
	snap := mgr.Snapshot()
	assert.True(t, snap.CashBalance.Equal(decimal.RequireFromString("100000")))
	assert.Empty(t, snap.Transactions)
}

func TestPostTradeSellWithoutHolding(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("sell", 1, 150))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no holding")
}

func TestPostTradeInvalidInput(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"zero quantity", tradeBody("buy", 0, 150)},
		{"negative price", tradeBody("buy", 1, -5)},
		{"bad action", tradeBody("hold", 1, 150)},
		{"missing symbol", map[string]interface{}{"type": "stock", "action": "buy", "quantity": 1, "price": 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/portfolio/trade", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetPortfolio(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10, 150))

	w := doJSON(r, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Portfolio struct {
			Balance    string `json:"balance"`
			TotalValue string `json:"totalValue"`
			Holdings   []struct {
				Symbol string `json:"symbol"`
			} `json:"holdings"`
			Transactions []json.RawMessage `json:"transactions"`
		} `json:"portfolio"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "98500", resp.Portfolio.Balance)
	require.Len(t, resp.Portfolio.Holdings, 1)
	assert.Equal(t, "AAPL", resp.Portfolio.Holdings[0].Symbol)
	assert.Len(t, resp.Portfolio.Transactions, 1)
}

func TestPostReset(t *testing.T) {
	r, mgr := newTestRouter(t, nil)
	doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10, 150))

	w := doJSON(r, http.MethodPost, "/api/portfolio/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	snap := mgr.Snapshot()
	assert.True(t, snap.CashBalance.Equal(decimal.RequireFromString("100000")))
	assert.Empty(t, snap.Holdings)
	assert.Empty(t, snap.Transactions)
}

func TestGetPerformance(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10, 150))
	doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("sell", 10, 160))

	w := doJSON(r, http.MethodGet, "/api/portfolio/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Performance []struct {
			Timestamp  time.Time `json:"timestamp"`
			TotalValue string    `json:"totalValue"`
		} `json:"performance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// seed + two trades; the position is closed so no live point follows
	require.Len(t, resp.Performance, 3)
	assert.Equal(t, "100000", resp.Performance[0].TotalValue)
	assert.Equal(t, "100100", resp.Performance[2].TotalValue)
}

func TestPersistenceWarningSurfacedToCaller(t *testing.T) {
	persist := &fakePersistStatus{err: store.ErrPersistenceUnavailable}
	r, _ := newTestRouterWithPersist(t, nil, persist)

	w := doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10, 150))
	require.Equal(t, http.StatusOK, w.Code, "a store outage must not fail the trade")

	var resp struct {
		Success bool   `json:"success"`
		Warning string `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Warning, "persistence unavailable")

	w = doJSON(r, http.MethodGet, "/api/portfolio", nil)
	assert.Contains(t, w.Body.String(), "persistence unavailable")

	// once writes recover the warning disappears
	persist.err = nil
	w = doJSON(r, http.MethodGet, "/api/portfolio", nil)
	assert.NotContains(t, w.Body.String(), "warning")
}

func TestNoPersistenceWarningByDefault(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := doJSON(r, http.MethodPost, "/api/portfolio/trade", tradeBody("buy", 10, 150))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "warning")
}

func TestWatchlistRoutes(t *testing.T) {
	r, _ := newTestRouter(t, newFakeWatchlist())

	w := doJSON(r, http.MethodPost, "/api/watchlist", map[string]interface{}{
		"symbol": "BTC", "name": "Bitcoin", "type": "crypto",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/api/watchlist", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BTC")

	w = doJSON(r, http.MethodDelete, "/api/watchlist/BTC", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/watchlist", nil)
	assert.NotContains(t, w.Body.String(), "BTC")
}

func TestWatchlistRejectsBadAssetClass(t *testing.T) {
	r, _ := newTestRouter(t, newFakeWatchlist())
	w := doJSON(r, http.MethodPost, "/api/watchlist", map[string]interface{}{
		"symbol": "X", "type": "bond",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatchlistUnavailableWithoutStore(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := doJSON(r, http.MethodGet, "/api/watchlist", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWatchlistStorageError(t *testing.T) {
	wl := newFakeWatchlist()
	wl.err = errors.New("db down")
	r, _ := newTestRouter(t, wl)

	w := doJSON(r, http.MethodGet, "/api/watchlist", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
