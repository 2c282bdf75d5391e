// Package store defines the trade-history archive for the trading engine.
// The history is append-only: entries are inserted once and never updated
// or deleted. Implementations include in-memory (the default — the session
// account itself is not persisted), PostgreSQL (optional archive), and a
// Redis read-through cache.
package store

import (
	"context"

	"github.com/papertrade/trading-engine/internal/model"
)

// Store is the trade-history interface. ListTrades returns entries in
// execution order.
type Store interface {
	// InsertTrade appends an immutable trade record.
	InsertTrade(ctx context.Context, trade *model.Trade) error

	// ListTrades returns all recorded trades in execution order.
	ListTrades(ctx context.Context) ([]model.Trade, error)

	// ListTradesByAsset returns all trades for one asset in execution order.
	ListTradesByAsset(ctx context.Context, assetID string) ([]model.Trade, error)
}
