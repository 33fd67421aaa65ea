// Package store owns the local price cache: serving cached history when
// fresh, refreshing from the provider when not, and degrading to stale
// data when upstream is unavailable.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/internal/provider"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// Backend persists price series. Load returns (nil, nil) when the symbol
// has no cached data.
type Backend interface {
	Load(ctx context.Context, symbol string) (*market.PriceSeries, error)
	Save(ctx context.Context, series *market.PriceSeries) error
}

// Result is what a cache read produces. Stale means the series could not
// be refreshed and predates the last expected trading day; Warning then
// carries the cause.
type Result struct {
	Series  *market.PriceSeries
	Stale   bool
	Warning *market.StaleWarning
}

// PriceStore is the single entry point for price history.
// SSOT: all price reads and refreshes go through this store.
type PriceStore struct {
	backend  Backend
	provider provider.Provider
	logger   *logger.Logger
	loc      *time.Location

	// historyDays is how far back a full refresh reaches.
	historyDays int

	// now is injectable for tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a PriceStore.
type Option func(*PriceStore)

// WithClock overrides the store's clock.
func WithClock(now func() time.Time) Option {
	return func(s *PriceStore) { s.now = now }
}

// WithHistoryDays sets the refresh lookback window.
func WithHistoryDays(days int) Option {
	return func(s *PriceStore) { s.historyDays = days }
}

// New creates a PriceStore. loc is the exchange timezone used for
// trading-day arithmetic.
func New(backend Backend, prov provider.Provider, log *logger.Logger, loc *time.Location, opts ...Option) *PriceStore {
	s := &PriceStore{
		backend:     backend,
		provider:    prov,
		logger:      log,
		loc:         loc,
		historyDays: 730,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// symbolLock returns the per-symbol mutex, creating it on first use.
// Serializing per symbol means concurrent pool runs trigger at most one
// upstream fetch per symbol per day.
func (s *PriceStore) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.locks[symbol] = l
	}
	return l
}

// Get returns the series for symbol, refreshing it first when the cache
// is not fresh. When the refresh fails but stale data exists, the stale
// series is returned with Result.Stale set. With no cache and no
// provider data the error wraps market.ErrNoData.
func (s *PriceStore) Get(ctx context.Context, symbol string) (*Result, error) {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	cached, err := s.backend.Load(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load %s from cache: %w", symbol, err)
	}

	if cached != nil && s.isFresh(cached) {
		return &Result{Series: cached}, nil
	}

	series, err := s.refresh(ctx, symbol)
	if err == nil {
		return &Result{Series: series}, nil
	}

	if cached != nil {
		last, _ := cached.LastBar()
		warning := &market.StaleWarning{Symbol: symbol, LastBar: last.Date, Cause: err}
		s.logger.WithFields(map[string]interface{}{
			"symbol":   symbol,
			"last_bar": last.Date.Format("2006-01-02"),
		}).WithError(err).Warn("Refresh failed, serving stale cache")
		return &Result{Series: cached, Stale: true, Warning: warning}, nil
	}

	return nil, fmt.Errorf("%s: %w: %v", symbol, market.ErrNoData, err)
}

// Refresh forces an upstream fetch for symbol regardless of freshness.
func (s *PriceStore) Refresh(ctx context.Context, symbol string) (*market.PriceSeries, error) {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()
	return s.refresh(ctx, symbol)
}

func (s *PriceStore) refresh(ctx context.Context, symbol string) (*market.PriceSeries, error) {
	now := s.now()
	from := now.AddDate(0, 0, -s.historyDays)

	bars, err := s.provider.FetchDaily(ctx, symbol, from, now)
	if err != nil {
		return nil, err
	}

	series := &market.PriceSeries{
		Symbol:      symbol,
		Bars:        bars,
		RefreshedAt: now,
	}
	if err := series.Validate(); err != nil {
		return nil, &market.ProviderError{
			Provider: s.provider.Name(), Symbol: symbol, Transient: false, Err: err,
		}
	}

	if err := s.backend.Save(ctx, series); err != nil {
		return nil, fmt.Errorf("save %s to cache: %w", symbol, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(bars),
	}).Info("Refreshed price cache")
	return series, nil
}

// isFresh reports whether the cached series needs no refresh: either the
// last bar covers the most recent expected trading day, or a refresh
// already ran today (absorbing exchange holidays, when no new bar can
// exist).
func (s *PriceStore) isFresh(series *market.PriceSeries) bool {
	last, ok := series.LastBar()
	if !ok {
		return false
	}

	now := s.now()
	if !last.Date.Before(market.LastTradingDay(now, s.loc)) {
		return true
	}
	return market.SameDay(series.RefreshedAt, now, s.loc)
}
