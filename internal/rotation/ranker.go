// Package rotation runs the momentum ranking for a pool: gathering
// series, computing indicators, and ordering the candidates.
package rotation

import (
	"math"
	"sort"

	"github.com/xldl/etf-rotor/internal/indicator"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// Entry is one ranked symbol.
type Entry struct {
	Symbol     string         `json:"symbol"`
	Name       string         `json:"name"`
	Rank       int            `json:"rank"`
	Indicators *indicator.Set `json:"indicators"`

	// Hold marks the symbol as a current rotation pick.
	Hold bool `json:"hold"`

	// Stale flags entries computed from a cache that could not be
	// refreshed this run.
	Stale bool `json:"stale"`
}

// Ranker orders indicator sets and picks the holds.
// SSOT: rotation ordering and hold selection happen only here.
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a ranker.
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{logger: log}
}

// Rank sorts entries by momentum score descending and assigns ranks and
// holds. Ties break by smaller absolute bias first, then symbol, so the
// same inputs always produce the same order. With the pool's trend
// filter on, only symbols above their MA are hold candidates; ranking
// still lists everyone.
func (r *Ranker) Rank(entries []Entry, pool *pools.Pool) []Entry {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Indicators.Score != b.Indicators.Score {
			return a.Indicators.Score > b.Indicators.Score
		}
		absA, absB := math.Abs(a.Indicators.BiasPct), math.Abs(b.Indicators.BiasPct)
		if absA != absB {
			return absA < absB
		}
		return a.Symbol < b.Symbol
	})

	holds := 0
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Hold = false
		if holds >= pool.TopN {
			continue
		}
		if pool.TrendFilterEnabled() && !entries[i].Indicators.AboveMA {
			continue
		}
		entries[i].Hold = true
		holds++
	}

	if len(entries) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"pool":      pool.ID,
			"ranked":    len(entries),
			"holds":     holds,
			"top":       entries[0].Symbol,
			"top_score": entries[0].Indicators.Score,
		}).Info("Ranking completed")
	}
	return entries
}
