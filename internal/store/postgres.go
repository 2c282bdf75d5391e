package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/papertrade/trading-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the trade archive.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed trade history.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, asset_id, symbol, side, quantity, unit_price, total_value, executed_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
		t.ID, t.AssetID, t.Symbol, string(t.Side),
		t.Quantity.String(), t.UnitPrice.String(), t.TotalValue.String(),
		t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListTrades(ctx context.Context) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, symbol, side,
		        quantity::TEXT, unit_price::TEXT, total_value::TEXT, executed_at
		 FROM trades ORDER BY executed_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) ListTradesByAsset(ctx context.Context, assetID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, symbol, side,
		        quantity::TEXT, unit_price::TEXT, total_value::TEXT, executed_at
		 FROM trades WHERE asset_id = $1 ORDER BY executed_at, id`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades reads pgx rows into Trade slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTrades(rows pgxRows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var side, qtyS, priceS, totalS string

		if err := rows.Scan(&t.ID, &t.AssetID, &t.Symbol, &side,
			&qtyS, &priceS, &totalS, &t.ExecutedAt); err != nil {
			return nil, err
		}

		t.Side = model.Side(side)
		t.Quantity, _ = decimal.NewFromString(qtyS)
		t.UnitPrice, _ = decimal.NewFromString(priceS)
		t.TotalValue, _ = decimal.NewFromString(totalS)

		trades = append(trades, t)
	}
	return trades, rows.Err()
}
