package trade_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/papertrade/trading-engine/internal/ledger"
	"github.com/papertrade/trading-engine/internal/model"
	"github.com/papertrade/trading-engine/internal/store"
	"github.com/papertrade/trading-engine/internal/trade"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// stubQuotes is a fixed quote snapshot standing in for the refresher.
type stubQuotes struct {
	quotes []model.Quote
}

func (s *stubQuotes) Snapshot() []model.Quote {
	return s.quotes
}

func (s *stubQuotes) Lookup(assetID string) (model.Quote, bool) {
	for _, q := range s.quotes {
		if q.AssetID == assetID {
			return q, true
		}
	}
	return model.Quote{}, false
}

// stubHistory returns a canned price series.
type stubHistory struct {
	points []model.PricePoint
	err    error
}

func (s *stubHistory) FetchHistory(_ context.Context, _ string, _ int) ([]model.PricePoint, error) {
	return s.points, s.err
}

// newTestEnv creates a test Service with in-memory everything and a chi router.
func newTestEnv(t *testing.T, balance float64, quotes ...model.Quote) (*trade.Service, *store.MemoryStore, chi.Router) {
	t.Helper()
	l := ledger.New(model.Profile{ID: "1", Name: "Demo", Email: "demo@example.com"}, d(balance))
	ms := store.NewMemoryStore()
	svc := trade.NewService(l, ms, &stubQuotes{quotes: quotes}, &stubHistory{}, nil)

	r := chi.NewRouter()
	r.Get("/api/v1/quotes", svc.ListQuotes)
	r.Get("/api/v1/quotes/{assetID}", svc.GetQuote)
	r.Get("/api/v1/quotes/{assetID}/history", svc.GetQuoteHistory)
	r.Post("/api/v1/trade", svc.ExecuteTrade)
	r.Get("/api/v1/account", svc.GetAccount)
	r.Get("/api/v1/account/trades", svc.ListTrades)

	return svc, ms, r
}

func btcQuote(price float64) model.Quote {
	return model.Quote{
		AssetID: "bitcoin",
		Symbol:  "BTC",
		Name:    "Bitcoin",
		Price:   d(price),
	}
}

func doTrade(t *testing.T, router chi.Router, req trade.TradeRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/api/v1/trade", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	return w
}

// --- Trade execution tests ---

func TestExecuteTrade_Buy(t *testing.T) {
	_, ms, router := newTestEnv(t, 10000, btcQuote(2000))

	w := doTrade(t, router, trade.TradeRequest{
		AssetID:  "bitcoin",
		Side:     "buy",
		Quantity: d(2),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp trade.TradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Trade.ID == "" {
		t.Error("expected non-empty trade id")
	}
	if !resp.Trade.TotalValue.Equal(d(4000)) {
		t.Errorf("expected total 4000, got %s", resp.Trade.TotalValue)
	}
	if !resp.CashBalance.Equal(d(6000)) {
		t.Errorf("expected cash 6000, got %s", resp.CashBalance)
	}
	if resp.Position == nil || !resp.Position.Quantity.Equal(d(2)) {
		t.Errorf("expected position of 2, got %+v", resp.Position)
	}

	entries, _ := ms.ListTrades(context.Background())
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Side != model.SideBuy {
		t.Errorf("expected side=buy, got %s", entries[0].Side)
	}
	if entries[0].ExecutedAt.IsZero() {
		t.Error("expected non-zero execution time")
	}
}

func TestExecuteTrade_SellPartial(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(2)})
	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "sell", Quantity: d(1)})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp trade.TradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Position == nil {
		t.Fatal("expected remaining position")
	}
	if !resp.Position.Quantity.Equal(d(1)) {
		t.Errorf("expected quantity 1, got %s", resp.Position.Quantity)
	}
	if !resp.Position.AverageCost.Equal(d(100)) {
		t.Errorf("sell must not change average cost, got %s", resp.Position.AverageCost)
	}
	if !resp.CashBalance.Equal(d(9900)) {
		t.Errorf("expected cash 9900, got %s", resp.CashBalance)
	}
}

func TestExecuteTrade_SellFullExitDropsPosition(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(2)})
	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "sell", Quantity: d(2)})

	var resp trade.TradeResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Position != nil {
		t.Errorf("expected no position after full exit, got %+v", resp.Position)
	}
}

func TestExecuteTrade_InvalidSide(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "hold", Quantity: d(1)})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid side, got %d", w.Code)
	}
}

func TestExecuteTrade_ZeroQuantity(t *testing.T) {
	_, ms, router := newTestEnv(t, 10000, btcQuote(100))

	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: decimal.Zero})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero quantity, got %d", w.Code)
	}
	entries, _ := ms.ListTrades(context.Background())
	if len(entries) != 0 {
		t.Errorf("rejected trade must not be recorded, got %d entries", len(entries))
	}
}

func TestExecuteTrade_NegativeQuantity(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "sell", Quantity: d(-3)})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative quantity, got %d", w.Code)
	}
}

func TestExecuteTrade_InsufficientFunds(t *testing.T) {
	_, ms, router := newTestEnv(t, 50, btcQuote(100))

	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(1)})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// No mutation: cash untouched, no trade recorded.
	req := httptest.NewRequest("GET", "/api/v1/account", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var snap model.AccountSnapshot
	json.Unmarshal(rec.Body.Bytes(), &snap)
	if !snap.CashBalance.Equal(d(50)) {
		t.Errorf("cash must be unchanged, got %s", snap.CashBalance)
	}
	entries, _ := ms.ListTrades(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected no trades recorded, got %d", len(entries))
	}
}

func TestExecuteTrade_InsufficientHoldings(t *testing.T) {
	_, ms, router := newTestEnv(t, 10000, btcQuote(100))

	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "sell", Quantity: d(1)})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	entries, _ := ms.ListTrades(context.Background())
	if len(entries) != 0 {
		t.Errorf("expected no trades recorded, got %d", len(entries))
	}
}

func TestExecuteTrade_SellMoreThanHeld(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(1)})
	w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "sell", Quantity: d(2)})

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestExecuteTrade_UnknownAsset(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	w := doTrade(t, router, trade.TradeRequest{AssetID: "dogecoin", Side: "buy", Quantity: d(1)})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestExecuteTrade_HistoryOrdered(t *testing.T) {
	_, ms, router := newTestEnv(t, 10000, btcQuote(10))

	for i := 0; i < 5; i++ {
		w := doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(1)})
		if w.Code != http.StatusCreated {
			t.Fatalf("trade %d failed: %d %s", i, w.Code, w.Body.String())
		}
	}

	entries, _ := ms.ListTrades(context.Background())
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ExecutedAt.Before(entries[i-1].ExecutedAt) {
			t.Errorf("entries out of execution order at %d", i)
		}
	}
}

// --- Quote endpoint tests ---

func TestListQuotes_SearchFilter(t *testing.T) {
	eth := model.Quote{AssetID: "ethereum", Symbol: "ETH", Name: "Ethereum", Price: d(2000)}
	_, _, router := newTestEnv(t, 10000, btcQuote(50000), eth)

	req := httptest.NewRequest("GET", "/api/v1/quotes?search=eth", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var qs []model.Quote
	json.Unmarshal(w.Body.Bytes(), &qs)
	if len(qs) != 1 || qs[0].AssetID != "ethereum" {
		t.Errorf("expected only ethereum, got %+v", qs)
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(50000))

	req := httptest.NewRequest("GET", "/api/v1/quotes/dogecoin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetQuoteHistory_InvalidDays(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(50000))

	req := httptest.NewRequest("GET", "/api/v1/quotes/bitcoin/history?days=0", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// --- Account tests ---

func TestGetAccount_SummaryTotals(t *testing.T) {
	_, _, router := newTestEnv(t, 10000, btcQuote(100))

	doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(10)})

	req := httptest.NewRequest("GET", "/api/v1/account", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var snap model.AccountSnapshot
	json.Unmarshal(w.Body.Bytes(), &snap)

	if snap.Profile.Name == "" {
		t.Error("expected a session profile")
	}
	if len(snap.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(snap.Positions))
	}
	if !snap.TotalValue.Equal(d(1000)) {
		t.Errorf("expected total value 1000, got %s", snap.TotalValue)
	}
	if !snap.TotalPnL.IsZero() {
		t.Errorf("expected zero P&L right after buy, got %s", snap.TotalPnL)
	}
}

func TestListTrades_FilterByAsset(t *testing.T) {
	eth := model.Quote{AssetID: "ethereum", Symbol: "ETH", Name: "Ethereum", Price: d(10)}
	_, _, router := newTestEnv(t, 10000, btcQuote(10), eth)

	doTrade(t, router, trade.TradeRequest{AssetID: "bitcoin", Side: "buy", Quantity: d(1)})
	doTrade(t, router, trade.TradeRequest{AssetID: "ethereum", Side: "buy", Quantity: d(1)})

	req := httptest.NewRequest("GET", "/api/v1/account/trades?asset_id=ethereum", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var trades []model.Trade
	json.Unmarshal(w.Body.Bytes(), &trades)
	if len(trades) != 1 || trades[0].AssetID != "ethereum" {
		t.Errorf("expected only the ethereum trade, got %+v", trades)
	}
}
