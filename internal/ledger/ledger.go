// Package ledger owns the session account: cash balance, open positions, and
// the arithmetic that keeps them consistent. Validation of trade intents
// happens in the trade executor before any method here is called; the apply
// methods themselves never fail.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/papertrade/trading-engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Ledger holds the single session account. All reads and mutations go
// through the internal lock; callers that need check-then-act atomicity
// (the trade executor) serialize on top of it.
type Ledger struct {
	mu        sync.RWMutex
	profile   model.Profile
	cash      decimal.Decimal
	positions map[string]*model.Position
	order     []string // assetIDs in first-buy order
}

// New creates a ledger with the given starting cash balance and no positions.
func New(profile model.Profile, startingBalance decimal.Decimal) *Ledger {
	return &Ledger{
		profile:   profile,
		cash:      startingBalance,
		positions: make(map[string]*model.Position),
	}
}

// CashBalance returns the current cash balance.
func (l *Ledger) CashBalance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

// Position returns a copy of the position for assetID, if one is held.
func (l *Ledger) Position(assetID string) (model.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.positions[assetID]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// ApplyBuy debits cash by quantity × unitPrice and folds the purchase into
// the position's weighted-average cost, creating the position on first buy.
// The caller has already verified sufficient cash.
func (l *Ledger) ApplyBuy(assetID, symbol, name string, quantity, unitPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := quantity.Mul(unitPrice)
	l.cash = l.cash.Sub(cost)

	p, ok := l.positions[assetID]
	if !ok {
		p = &model.Position{
			AssetID:     assetID,
			Symbol:      symbol,
			Name:        name,
			Quantity:    quantity,
			AverageCost: unitPrice,
		}
		l.positions[assetID] = p
		l.order = append(l.order, assetID)
	} else {
		newQty := p.Quantity.Add(quantity)
		// avg' = (avg×qty + price×bought) / (qty + bought)
		p.AverageCost = p.AverageCost.Mul(p.Quantity).Add(cost).Div(newQty)
		p.Quantity = newQty
	}

	markPosition(p, unitPrice)
}

// ApplySell credits cash by quantity × unitPrice and reduces the position.
// AverageCost is deliberately unchanged: remaining units keep their cost
// basis under weighted-average accounting. A position sold down to exactly
// zero is removed. The caller has already verified sufficient holdings.
func (l *Ledger) ApplySell(assetID string, quantity, unitPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[assetID]
	if !ok {
		return
	}

	l.cash = l.cash.Add(quantity.Mul(unitPrice))
	p.Quantity = p.Quantity.Sub(quantity)

	if p.Quantity.IsZero() {
		delete(l.positions, assetID)
		for i, id := range l.order {
			if id == assetID {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
		return
	}

	markPosition(p, unitPrice)
}

// MarkToMarket refreshes the valuation fields of every position from the
// given quote set. Cost basis and cash are untouched. Positions whose asset
// is missing from the set keep their last known mark price — stale but
// visible, not an error. Idempotent for a given quote set.
func (l *Ledger) MarkToMarket(quotes map[string]model.Quote) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, p := range l.positions {
		q, ok := quotes[id]
		if !ok {
			continue
		}
		markPosition(p, q.Price)
	}
}

// markPosition recomputes the market fields from the given price.
// Caller holds the write lock.
func markPosition(p *model.Position, price decimal.Decimal) {
	p.MarkPrice = price
	p.MarketValue = p.Quantity.Mul(price)
	costBasis := p.Quantity.Mul(p.AverageCost)
	p.UnrealizedPnL = p.MarketValue.Sub(costBasis)
	if costBasis.IsZero() {
		p.UnrealizedPnLPercent = decimal.Zero
		return
	}
	p.UnrealizedPnLPercent = p.UnrealizedPnL.Div(costBasis).Mul(hundred)
}

// Snapshot returns a consistent copy of the account with summary totals,
// positions in first-buy order.
func (l *Ledger) Snapshot() model.AccountSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := model.AccountSnapshot{
		Profile:     l.profile,
		CashBalance: l.cash,
		Positions:   make([]model.Position, 0, len(l.order)),
	}

	totalValue := decimal.Zero
	totalPnL := decimal.Zero
	for _, id := range l.order {
		p := l.positions[id]
		snap.Positions = append(snap.Positions, *p)
		totalValue = totalValue.Add(p.MarketValue)
		totalPnL = totalPnL.Add(p.UnrealizedPnL)
	}

	snap.TotalValue = totalValue
	snap.TotalPnL = totalPnL
	totalCost := totalValue.Sub(totalPnL)
	if !totalCost.IsZero() {
		snap.TotalPnLPercent = totalPnL.Div(totalCost).Mul(hundred)
	}
	return snap
}
