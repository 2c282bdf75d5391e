// Package trade is the sole entry point for user trade intents: it validates
// them against the account, prices them from the latest quote snapshot,
// applies them to the ledger, and records them in the trade history.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade/trading-engine/internal/ledger"
	"github.com/papertrade/trading-engine/internal/metrics"
	"github.com/papertrade/trading-engine/internal/model"
	"github.com/papertrade/trading-engine/internal/store"
)

// QuoteSource is the read side of the quote refresher.
type QuoteSource interface {
	Snapshot() []model.Quote
	Lookup(assetID string) (model.Quote, bool)
}

// HistoryFetcher fetches an asset's historical price series.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, assetID string, days int) ([]model.PricePoint, error)
}

// Service executes trades against the session ledger. A mutex serializes
// execution so validation and application form one critical section; quote
// refreshes only touch valuation fields and cannot invalidate a passed check.
type Service struct {
	ledger  *ledger.Ledger
	store   store.Store
	quotes  QuoteSource
	history HistoryFetcher
	mu      sync.Mutex
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(l *ledger.Ledger, st store.Store, quotes QuoteSource, history HistoryFetcher, hub *WSHub) *Service {
	return &Service{
		ledger:  l,
		store:   st,
		quotes:  quotes,
		history: history,
		wsHub:   hub,
	}
}

// Execute validates and applies one trade intent at the quoted price.
// Either the trade fully applies — cash, position, and history entry — or
// nothing is mutated and a sentinel error describes the rejection.
func (s *Service) Execute(ctx context.Context, quote model.Quote, side model.Side, quantity decimal.Decimal) (model.Trade, error) {
	if !side.Valid() {
		return model.Trade{}, ErrInvalidSide
	}
	if !quantity.IsPositive() {
		return model.Trade{}, ErrInvalidQuantity
	}
	if !quote.Price.IsPositive() {
		return model.Trade{}, ErrInvalidPrice
	}

	start := time.Now()

	// Serialize trade execution.
	s.mu.Lock()
	defer s.mu.Unlock()

	total := quantity.Mul(quote.Price)

	switch side {
	case model.SideBuy:
		if total.GreaterThan(s.ledger.CashBalance()) {
			metrics.TradeRejectionsTotal.WithLabelValues("insufficient_funds").Inc()
			return model.Trade{}, ErrInsufficientFunds
		}
		s.ledger.ApplyBuy(quote.AssetID, quote.Symbol, quote.Name, quantity, quote.Price)

	case model.SideSell:
		p, ok := s.ledger.Position(quote.AssetID)
		if !ok || p.Quantity.LessThan(quantity) {
			metrics.TradeRejectionsTotal.WithLabelValues("insufficient_holdings").Inc()
			return model.Trade{}, ErrInsufficientHoldings
		}
		s.ledger.ApplySell(quote.AssetID, quantity, quote.Price)
	}

	trade := model.Trade{
		ID:         uuid.New().String(),
		AssetID:    quote.AssetID,
		Symbol:     quote.Symbol,
		Side:       side,
		Quantity:   quantity,
		UnitPrice:  quote.Price,
		TotalValue: total,
		ExecutedAt: time.Now().UTC(),
	}

	if err := s.store.InsertTrade(ctx, &trade); err != nil {
		// The account already reflects the trade; only the archive write
		// failed. The default in-memory store cannot fail here.
		slog.Error("failed to record trade", "trade_id", trade.ID, "err", err)
		return model.Trade{}, fmt.Errorf("record trade: %w", err)
	}

	metrics.TradesTotal.WithLabelValues(string(side)).Inc()
	metrics.TradeLatency.WithLabelValues(string(side)).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"trade_id", trade.ID,
		"asset", quote.AssetID,
		"side", side,
		"qty", quantity.String(),
		"price", quote.Price.String(),
		"total", total.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "trade_executed",
			AssetID:  quote.AssetID,
			Symbol:   quote.Symbol,
			Side:     string(side),
			Quantity: quantity.String(),
			Price:    quote.Price.String(),
		})
	}

	return trade, nil
}
