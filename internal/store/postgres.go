package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xldl/etf-rotor/internal/market"
)

// PostgresBackend persists price series in the etf_prices and
// etf_refresh_meta tables.
// SSOT: the price schema is touched only from this backend.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a Postgres cache backend.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Load reads the full cached series for symbol, date ascending. A symbol
// with no rows returns (nil, nil).
func (b *PostgresBackend) Load(ctx context.Context, symbol string) (*market.PriceSeries, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM etf_prices
		WHERE symbol = $1
		ORDER BY trade_date ASC
	`

	rows, err := b.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []market.PriceBar
	for rows.Next() {
		var bar market.PriceBar
		if err := rows.Scan(&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan price row for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read prices for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, nil
	}

	refreshedAt, err := b.refreshedAt(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &market.PriceSeries{
		Symbol:      symbol,
		Bars:        bars,
		RefreshedAt: refreshedAt,
	}, nil
}

// Save replaces the cached series for the symbol in one transaction so a
// failed refresh never leaves a mixed series behind.
func (b *PostgresBackend) Save(ctx context.Context, series *market.PriceSeries) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save for %s: %w", series.Symbol, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM etf_prices WHERE symbol = $1`, series.Symbol); err != nil {
		return fmt.Errorf("clear prices for %s: %w", series.Symbol, err)
	}

	insert := `
		INSERT INTO etf_prices (symbol, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, bar := range series.Bars {
		if _, err := tx.Exec(ctx, insert,
			series.Symbol, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		); err != nil {
			return fmt.Errorf("insert price for %s: %w", series.Symbol, err)
		}
	}

	meta := `
		INSERT INTO etf_refresh_meta (symbol, refreshed_at)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET refreshed_at = EXCLUDED.refreshed_at
	`
	if _, err := tx.Exec(ctx, meta, series.Symbol, series.RefreshedAt); err != nil {
		return fmt.Errorf("update refresh meta for %s: %w", series.Symbol, err)
	}

	return tx.Commit(ctx)
}

func (b *PostgresBackend) refreshedAt(ctx context.Context, symbol string) (time.Time, error) {
	var at time.Time
	err := b.pool.QueryRow(ctx,
		`SELECT refreshed_at FROM etf_refresh_meta WHERE symbol = $1`, symbol,
	).Scan(&at)
	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query refresh meta for %s: %w", symbol, err)
	}
	return at, nil
}
