// Package report turns a rotation run into the daily report: a pure
// aggregation plus text and HTML renderings.
package report

import (
	"fmt"
	"time"

	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/rotation"
)

// Report is the daily readout for one pool.
type Report struct {
	PoolID      string              `json:"pool_id"`
	PoolName    string              `json:"pool_name"`
	GeneratedAt time.Time           `json:"generated_at"`
	Entries     []rotation.Entry    `json:"entries"`
	Omissions   []rotation.Omission `json:"omissions"`

	// Holds lists the current picks in rank order.
	Holds []string `json:"holds"`

	// Stale is set when any entry was computed from unrefreshed data.
	Stale bool `json:"stale"`

	Summary string `json:"summary"`
}

// Build assembles a report from a finished run. Pure: no I/O, no clock
// beyond the passed timestamp.
func Build(pool *pools.Pool, result *rotation.RunResult, generatedAt time.Time) *Report {
	r := &Report{
		PoolID:      pool.ID,
		PoolName:    pool.Name,
		GeneratedAt: generatedAt,
		Entries:     result.Entries,
		Omissions:   result.Omissions,
	}

	for _, e := range result.Entries {
		if e.Hold {
			r.Holds = append(r.Holds, e.Symbol)
		}
		if e.Stale {
			r.Stale = true
		}
	}

	total := len(result.Entries) + len(result.Omissions)
	r.Summary = fmt.Sprintf("%d of %d symbols ranked", len(result.Entries), total)
	if n := len(result.Omissions); n > 0 {
		r.Summary += fmt.Sprintf(", %d excluded", n)
	}
	if r.Stale {
		r.Summary += " (stale data)"
	}
	return r
}
