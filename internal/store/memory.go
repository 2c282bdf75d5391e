package store

import (
	"context"
	"sync"

	"github.com/papertrade/trading-engine/internal/model"
)

// MemoryStore implements Store with an in-memory slice. This is the default
// backend: the session account is not persisted, so its trade history lives
// and dies with the process unless a database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	trades []model.Trade
}

// NewMemoryStore creates a new in-memory trade history.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertTrade(_ context.Context, trade *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *trade)
	return nil
}

func (s *MemoryStore) ListTrades(_ context.Context) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Copy out so callers cannot touch the backing array.
	trades := make([]model.Trade, len(s.trades))
	copy(trades, s.trades)
	return trades, nil
}

func (s *MemoryStore) ListTradesByAsset(_ context.Context, assetID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []model.Trade
	for _, t := range s.trades {
		if t.AssetID == assetID {
			trades = append(trades, t)
		}
	}
	return trades, nil
}
