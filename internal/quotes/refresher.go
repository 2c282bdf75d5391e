package quotes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/papertrade/trading-engine/internal/metrics"
	"github.com/papertrade/trading-engine/internal/model"
)

// Fetcher fetches a fresh quote set. Implemented by Client; stubbed in tests.
type Fetcher interface {
	FetchQuotes(ctx context.Context) ([]model.Quote, error)
}

// Valuer receives each fresh quote set to mark positions to market.
// Implemented by the ledger.
type Valuer interface {
	MarkToMarket(quotes map[string]model.Quote)
}

// Refresher periodically fetches quotes and owns the last-known-good
// snapshot. A failed fetch is logged and the previous snapshot kept; the
// next scheduled tick retries. Start/Stop bound the refresh lifecycle to
// the session.
type Refresher struct {
	fetcher   Fetcher
	valuer    Valuer
	onRefresh func([]model.Quote) // optional, e.g. WebSocket broadcast
	timeout   time.Duration
	cron      *cron.Cron

	mu          sync.RWMutex
	list        []model.Quote
	byID        map[string]model.Quote
	refreshedAt time.Time
}

// NewRefresher creates a refresher. Pass nil for onRefresh if no one needs
// to be notified of fresh snapshots.
func NewRefresher(fetcher Fetcher, valuer Valuer, onRefresh func([]model.Quote)) *Refresher {
	return &Refresher{
		fetcher:   fetcher,
		valuer:    valuer,
		onRefresh: onRefresh,
		timeout:   15 * time.Second,
		cron:      cron.New(),
		byID:      make(map[string]model.Quote),
	}
}

// Start performs one immediate fetch, then schedules recurring refreshes.
// Schedule is a cron spec such as "@every 30s". A failed initial fetch is
// not fatal; the service starts with an empty snapshot and recovers on the
// next tick.
func (r *Refresher) Start(schedule string) error {
	if err := r.Refresh(context.Background()); err != nil {
		slog.Warn("initial quote fetch failed", "err", err)
	}

	_, err := r.cron.AddFunc(schedule, func() {
		if err := r.Refresh(context.Background()); err != nil {
			slog.Warn("quote refresh failed, keeping previous snapshot", "err", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	slog.Info("quote refresher started", "schedule", schedule)
	return nil
}

// Stop cancels the recurring refresh and waits for a running fetch to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("quote refresher stopped")
}

// Refresh performs a single fetch-and-apply cycle. On success the snapshot
// is replaced wholesale and positions are marked to market; on failure
// nothing changes.
func (r *Refresher) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fetched, err := r.fetcher.FetchQuotes(ctx)
	if err != nil {
		metrics.QuoteRefreshesTotal.WithLabelValues("error").Inc()
		return err
	}

	byID := make(map[string]model.Quote, len(fetched))
	for _, q := range fetched {
		byID[q.AssetID] = q
	}

	r.mu.Lock()
	r.list = fetched
	r.byID = byID
	r.refreshedAt = time.Now().UTC()
	r.mu.Unlock()

	r.valuer.MarkToMarket(byID)

	metrics.QuoteRefreshesTotal.WithLabelValues("ok").Inc()
	metrics.TrackedAssets.Set(float64(len(fetched)))
	slog.Debug("quotes refreshed", "assets", len(fetched))

	if r.onRefresh != nil {
		r.onRefresh(fetched)
	}
	return nil
}

// Snapshot returns a copy of the current quote list in market-cap order.
func (r *Refresher) Snapshot() []model.Quote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Quote, len(r.list))
	copy(out, r.list)
	return out
}

// Lookup returns the current quote for assetID, if present in the snapshot.
func (r *Refresher) Lookup(assetID string) (model.Quote, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.byID[assetID]
	return q, ok
}

// RefreshedAt returns when the snapshot was last replaced, zero if never.
func (r *Refresher) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt
}
