// Package model defines the core domain types shared across the trading engine.
// All monetary and quantity values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known trade side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Quote is a point-in-time snapshot of one tradable asset's market data.
// Quotes are immutable once produced; each refresh replaces the whole set.
type Quote struct {
	AssetID          string          `json:"asset_id"`
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	ChangePercent24h decimal.Decimal `json:"change_percent_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	Volume24h        decimal.Decimal `json:"volume_24h"`
	Image            string          `json:"image"`
}

// PricePoint is one sample of an asset's historical price series.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// Position is the user's aggregate holding of one asset. AverageCost is a
// rolling weighted average maintained on buys; sells never change it. The
// market fields (MarkPrice and everything derived from it) are rewritten on
// every quote refresh and carry the last known price when a quote is missing.
type Position struct {
	AssetID              string          `json:"asset_id"`
	Symbol               string          `json:"symbol"`
	Name                 string          `json:"name"`
	Quantity             decimal.Decimal `json:"quantity"`
	AverageCost          decimal.Decimal `json:"average_cost"`
	MarkPrice            decimal.Decimal `json:"mark_price"`
	MarketValue          decimal.Decimal `json:"market_value"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`
}

// CostBasis returns quantity × averageCost, the position's value at cost.
func (p Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AverageCost)
}

// Trade is an immutable record of one executed order.
// Once created, these are never modified or deleted.
type Trade struct {
	ID         string          `json:"id" db:"id"`
	AssetID    string          `json:"asset_id" db:"asset_id"`
	Symbol     string          `json:"symbol" db:"symbol"`
	Side       Side            `json:"side" db:"side"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value" db:"total_value"`
	ExecutedAt time.Time       `json:"executed_at" db:"executed_at"`
}

// Profile identifies the demo session user. There is no auth; a single
// fixed profile exists per session.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AccountSnapshot is a consistent read-only view of the account, as served
// to the presentation layer. Positions preserve insertion order.
type AccountSnapshot struct {
	Profile         Profile         `json:"profile"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	Positions       []Position      `json:"positions"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	TotalPnLPercent decimal.Decimal `json:"total_pnl_percent"`
}
