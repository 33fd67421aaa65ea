package rotation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xldl/etf-rotor/internal/indicator"
	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/store"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// Omission records a symbol excluded from a run and why.
type Omission struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RunResult is the outcome of one pool run: ranked entries plus the
// symbols that had to be dropped.
type RunResult struct {
	Entries   []Entry    `json:"entries"`
	Omissions []Omission `json:"omissions"`
}

// Engine orchestrates a pool run.
// SSOT: pool runs are driven only from this engine.
type Engine struct {
	store   *store.PriceStore
	calc    *indicator.Calculator
	ranker  *Ranker
	logger  *logger.Logger
	workers int
}

// NewEngine creates an engine. workers bounds concurrent symbol
// processing; values below 1 mean one worker.
func NewEngine(priceStore *store.PriceStore, calc *indicator.Calculator, ranker *Ranker, log *logger.Logger, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		store:   priceStore,
		calc:    calc,
		ranker:  ranker,
		logger:  log.WithField("module", "rotation"),
		workers: workers,
	}
}

type symbolResult struct {
	entry    *Entry
	omission *Omission
}

// Run ranks every symbol in the pool. Symbols with no data or too little
// history are collected as omissions; the run fails only when nothing
// ranks, with an error wrapping market.ErrEmptyPool.
func (e *Engine) Run(ctx context.Context, pool *pools.Pool) (*RunResult, error) {
	e.logger.WithFields(map[string]interface{}{
		"pool":    pool.ID,
		"symbols": len(pool.Symbols),
		"workers": e.workers,
	}).Info("Starting pool run")

	params := indicator.Params{
		MomentumWindows: pool.MomentumWindows,
		ScoreWindow:     pool.ScoreWindow,
		MAWindow:        pool.MAWindow,
		BiasWindows:     pool.BiasWindows,
	}

	symbolCh := make(chan pools.SymbolEntry, len(pool.Symbols))
	resultCh := make(chan symbolResult, len(pool.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.symbolWorker(ctx, workerID, symbolCh, resultCh, params)
		}(i)
	}

	for _, s := range pool.Symbols {
		symbolCh <- s
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var entries []Entry
	var omissions []Omission
	for res := range resultCh {
		if res.entry != nil {
			entries = append(entries, *res.entry)
		}
		if res.omission != nil {
			omissions = append(omissions, *res.omission)
		}
	}

	// Worker completion order is arbitrary; keep omissions stable.
	sort.Slice(omissions, func(i, j int) bool { return omissions[i].Symbol < omissions[j].Symbol })

	if len(entries) == 0 {
		return nil, fmt.Errorf("pool %s: %w (%d symbols omitted)", pool.ID, market.ErrEmptyPool, len(omissions))
	}

	entries = e.ranker.Rank(entries, pool)

	e.logger.WithFields(map[string]interface{}{
		"pool":    pool.ID,
		"ranked":  len(entries),
		"omitted": len(omissions),
	}).Info("Pool run completed")

	return &RunResult{Entries: entries, Omissions: omissions}, nil
}

func (e *Engine) symbolWorker(ctx context.Context, workerID int, symbolCh <-chan pools.SymbolEntry, resultCh chan<- symbolResult, params indicator.Params) {
	for sym := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- symbolResult{omission: &Omission{
				Symbol: sym.Code, Name: sym.Name, Reason: ctx.Err().Error(),
			}}
			continue
		default:
		}

		res, err := e.store.Get(ctx, sym.Code)
		if err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": sym.Code,
			}).Error("Failed to load series")
			resultCh <- symbolResult{omission: &Omission{
				Symbol: sym.Code, Name: sym.Name, Reason: omissionReason(err),
			}}
			continue
		}

		set, err := e.calc.Compute(res.Series, params)
		if err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": sym.Code,
			}).Warn("Failed to compute indicators")
			resultCh <- symbolResult{omission: &Omission{
				Symbol: sym.Code, Name: sym.Name, Reason: omissionReason(err),
			}}
			continue
		}

		resultCh <- symbolResult{entry: &Entry{
			Symbol:     sym.Code,
			Name:       sym.Name,
			Indicators: set,
			Stale:      res.Stale,
		}}
	}
}

// RefreshPool forces an upstream refresh for every symbol in the pool,
// fanning out over the worker budget. It reports how many symbols
// refreshed and how many failed; failures are logged, not returned, so
// one dead symbol never blocks the rest.
func (e *Engine) RefreshPool(ctx context.Context, pool *pools.Pool) (refreshed, failed int) {
	symbolCh := make(chan pools.SymbolEntry, len(pool.Symbols))
	errCh := make(chan error, len(pool.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symbolCh {
				_, err := e.store.Refresh(ctx, sym.Code)
				if err != nil {
					e.logger.WithError(err).WithField("symbol", sym.Code).Error("Forced refresh failed")
				}
				errCh <- err
			}
		}()
	}

	for _, s := range pool.Symbols {
		symbolCh <- s
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(errCh)
	}()

	for err := range errCh {
		if err != nil {
			failed++
		} else {
			refreshed++
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"pool":      pool.ID,
		"refreshed": refreshed,
		"failed":    failed,
	}).Info("Pool refresh completed")
	return refreshed, failed
}

// omissionReason maps error types to the short reasons shown in reports.
func omissionReason(err error) string {
	var ih *market.InsufficientHistoryError
	switch {
	case errors.Is(err, market.ErrNoData):
		return "no data"
	case errors.As(err, &ih):
		return fmt.Sprintf("insufficient history (%d of %d bars)", ih.Have, ih.Need)
	default:
		return err.Error()
	}
}
