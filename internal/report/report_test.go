package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xldl/etf-rotor/internal/indicator"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/rotation"
)

func sampleResult() *rotation.RunResult {
	return &rotation.RunResult{
		Entries: []rotation.Entry{
			{
				Symbol: "510300", Name: "CSI 300 ETF", Rank: 1, Hold: true,
				Indicators: &indicator.Set{Symbol: "510300", Price: 4.021, Score: 0.0812, BiasPct: 1.93, AboveMA: true},
			},
			{
				Symbol: "159915", Name: "ChiNext ETF", Rank: 2, Hold: true, Stale: true,
				Indicators: &indicator.Set{Symbol: "159915", Price: 2.105, Score: 0.0511, BiasPct: -0.42, AboveMA: true},
			},
			{
				Symbol: "518880", Name: "Gold ETF", Rank: 3,
				Indicators: &indicator.Set{Symbol: "518880", Price: 6.77, Score: -0.012, BiasPct: -2.1, AboveMA: false},
			},
		},
		Omissions: []rotation.Omission{
			{Symbol: "159329", Name: "Saudi ETF", Reason: "insufficient history (12 of 28 bars)"},
		},
	}
}

func samplePool() *pools.Pool {
	return &pools.Pool{ID: "default", Name: "Core rotation", TopN: 2}
}

func TestBuild(t *testing.T) {
	at := time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC)
	r := Build(samplePool(), sampleResult(), at)

	assert.Equal(t, "default", r.PoolID)
	assert.Equal(t, []string{"510300", "159915"}, r.Holds)
	assert.True(t, r.Stale)
	assert.Equal(t, "3 of 4 symbols ranked, 1 excluded (stale data)", r.Summary)
}

func TestBuildCleanRun(t *testing.T) {
	res := sampleResult()
	res.Entries = res.Entries[:1]
	res.Entries[0].Stale = false
	res.Omissions = nil

	r := Build(samplePool(), res, time.Now())
	assert.False(t, r.Stale)
	assert.Equal(t, "1 of 1 symbols ranked", r.Summary)
}

func TestRenderText(t *testing.T) {
	r := Build(samplePool(), sampleResult(), time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC))
	out := RenderText(r)

	assert.Contains(t, out, "Core rotation")
	assert.Contains(t, out, "510300")
	assert.Contains(t, out, "159915!") // stale marker
	assert.Contains(t, out, "Excluded:")
	assert.Contains(t, out, "insufficient history")

	// Rank order is preserved line by line.
	lines := strings.Split(out, "\n")
	var symLines []string
	for _, l := range lines {
		if strings.Contains(l, "ETF") {
			symLines = append(symLines, l)
		}
	}
	require.Len(t, symLines, 3)
	assert.Contains(t, symLines[0], "510300")
	assert.Contains(t, symLines[2], "518880")
}

func TestRenderHTML(t *testing.T) {
	r := Build(samplePool(), sampleResult(), time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC))
	out, err := RenderHTML(r)
	require.NoError(t, err)

	assert.Contains(t, out, "<h2>Core rotation</h2>")
	assert.Contains(t, out, "510300")
	assert.Contains(t, out, `class="hold"`)
	assert.Contains(t, out, "+8.12%") // momentum rendered in percent
	assert.Contains(t, out, "159329 (insufficient history")
	assert.Contains(t, out, "could not be refreshed")
}
