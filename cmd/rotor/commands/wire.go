package commands

import (
	"fmt"
	"time"

	"github.com/xldl/etf-rotor/internal/indicator"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/provider"
	"github.com/xldl/etf-rotor/internal/provider/eastmoney"
	"github.com/xldl/etf-rotor/internal/provider/sina"
	"github.com/xldl/etf-rotor/internal/rotation"
	"github.com/xldl/etf-rotor/internal/store"
	"github.com/xldl/etf-rotor/pkg/config"
	"github.com/xldl/etf-rotor/pkg/database"
	"github.com/xldl/etf-rotor/pkg/httputil"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// engineWorkers bounds concurrent symbol fetches; pools are small so a
// handful is plenty.
const engineWorkers = 4

// app bundles the wired components shared by every command.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	loc      *time.Location
	registry *pools.Registry
	store    *store.PriceStore
	engine   *rotation.Engine

	db *database.DB // nil for the csv backend
}

// newApp loads config and wires the full engine stack.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if poolsFile != "" {
		cfg.PoolsFile = poolsFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	loc, err := time.LoadLocation(cfg.Mail.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Mail.Timezone, err)
	}

	registry, err := pools.Load(cfg.PoolsFile)
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}

	httpClient := httputil.New(log, cfg.Provider.Timeout).
		WithRetry(cfg.Provider.MaxRetries, 1*time.Second).
		WithRateLimit(cfg.Provider.RatePerSecond, engineWorkers)

	chain := provider.NewChain(log,
		eastmoney.NewClient(httpClient, log, cfg.Provider.EastmoneyBaseURL),
		sina.NewClient(httpClient, log, cfg.Provider.SinaBaseURL),
	)

	a := &app{cfg: cfg, log: log, loc: loc, registry: registry}

	var backend store.Backend
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		backend = store.NewPostgresBackend(db.Pool)
	default:
		backend, err = store.NewCSVBackend(cfg.Storage.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open cache dir: %w", err)
		}
	}

	a.store = store.New(backend, chain, log, loc)
	a.engine = rotation.NewEngine(a.store, indicator.NewCalculator(log),
		rotation.NewRanker(log), log, engineWorkers)

	return a, nil
}

// Close releases held connections.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// poolsForArg resolves an optional pool-ID argument: a named pool, or
// every pool when the argument is empty.
func (a *app) poolsForArg(arg string) ([]*pools.Pool, error) {
	if arg == "" {
		return a.registry.All(), nil
	}
	p, ok := a.registry.Get(arg)
	if !ok {
		return nil, fmt.Errorf("unknown pool %q", arg)
	}
	return []*pools.Pool{p}, nil
}
