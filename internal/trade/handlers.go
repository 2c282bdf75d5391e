package trade

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/papertrade/trading-engine/internal/model"
)

// TradeRequest is the JSON body for POST /api/v1/trade. The server prices
// the trade from its own snapshot; clients never supply a price.
type TradeRequest struct {
	AssetID  string          `json:"asset_id"`
	Side     string          `json:"side"` // "buy" or "sell"
	Quantity decimal.Decimal `json:"quantity"`
}

// TradeResponse is the JSON body returned from POST /api/v1/trade.
type TradeResponse struct {
	Trade       model.Trade     `json:"trade"`
	Position    *model.Position `json:"position,omitempty"` // absent after a full exit
	CashBalance decimal.Decimal `json:"cash_balance"`
}

// ExecuteTrade handles POST /api/v1/trade.
func (s *Service) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quote, ok := s.quotes.Lookup(req.AssetID)
	if !ok {
		writeError(w, "no quote for asset: "+req.AssetID, http.StatusNotFound)
		return
	}

	executed, err := s.Execute(r.Context(), quote, model.Side(req.Side), req.Quantity)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	resp := TradeResponse{
		Trade:       executed,
		CashBalance: s.ledger.CashBalance(),
	}
	if p, held := s.ledger.Position(req.AssetID); held {
		resp.Position = &p
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// GetAccount handles GET /api/v1/account.
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ledger.Snapshot())
}

// ListTrades handles GET /api/v1/account/trades.
// Returns trades in execution order, optionally filtered by ?asset_id=.
func (s *Service) ListTrades(w http.ResponseWriter, r *http.Request) {
	var (
		trades []model.Trade
		err    error
	)
	if assetID := r.URL.Query().Get("asset_id"); assetID != "" {
		trades, err = s.store.ListTradesByAsset(r.Context(), assetID)
	} else {
		trades, err = s.store.ListTrades(r.Context())
	}
	if err != nil {
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// ListQuotes handles GET /api/v1/quotes.
// Returns the current snapshot, optionally filtered by ?search= on symbol
// or name (case-insensitive substring).
func (s *Service) ListQuotes(w http.ResponseWriter, r *http.Request) {
	qs := s.quotes.Snapshot()
	if qs == nil {
		qs = []model.Quote{}
	}

	if search := strings.ToLower(r.URL.Query().Get("search")); search != "" {
		filtered := make([]model.Quote, 0, len(qs))
		for _, q := range qs {
			if strings.Contains(strings.ToLower(q.Name), search) ||
				strings.Contains(strings.ToLower(q.Symbol), search) {
				filtered = append(filtered, q)
			}
		}
		qs = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(qs)
}

// GetQuote handles GET /api/v1/quotes/{assetID}.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	quote, ok := s.quotes.Lookup(assetID)
	if !ok {
		writeError(w, "no quote for asset: "+assetID, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quote)
}

// GetQuoteHistory handles GET /api/v1/quotes/{assetID}/history?days=7.
func (s *Service) GetQuoteHistory(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		days = n
	}

	points, err := s.history.FetchHistory(r.Context(), assetID, days)
	if err != nil {
		writeError(w, "failed to fetch price history", http.StatusBadGateway)
		return
	}
	if points == nil {
		points = []model.PricePoint{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

// statusFor maps executor errors to HTTP status codes.
func statusFor(err error) int {
	switch err {
	case ErrInvalidQuantity, ErrInvalidSide, ErrInvalidPrice:
		return http.StatusBadRequest
	case ErrInsufficientFunds, ErrInsufficientHoldings:
		return http.StatusConflict
	case ErrUnknownAsset:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
