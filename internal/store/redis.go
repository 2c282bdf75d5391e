package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papertrade/trading-engine/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Inserts go to the primary store and invalidate the cached lists; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) InsertTrade(ctx context.Context, trade *model.Trade) error {
	if err := s.primary.InsertTrade(ctx, trade); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, tradesKey(), assetTradesKey(trade.AssetID))
	return nil
}

func (s *CachedStore) ListTrades(ctx context.Context) ([]model.Trade, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, tradesKey()).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	// Cache miss: read from primary.
	trades, err := s.primary.ListTrades(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, tradesKey(), data, s.ttl)
	}
	return trades, nil
}

func (s *CachedStore) ListTradesByAsset(ctx context.Context, assetID string) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, assetTradesKey(assetID)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	trades, err := s.primary.ListTradesByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, assetTradesKey(assetID), data, s.ttl)
	}
	return trades, nil
}

func tradesKey() string                    { return "trades:all" }
func assetTradesKey(assetID string) string { return fmt.Sprintf("trades:asset:%s", assetID) }
