// Package indicator computes the per-symbol momentum and MA-deviation
// readouts the ranker consumes.
package indicator

import (
	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// Params selects the indicator windows. ScoreWindow must be one of
// MomentumWindows; it picks which momentum return ranks the pool.
type Params struct {
	MomentumWindows []int
	ScoreWindow     int
	MAWindow        int
	BiasWindows     []int
}

// Set is the full indicator readout for one symbol as of its last bar.
type Set struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`

	// Momentum maps window length to the simple return over that window.
	Momentum map[int]float64 `json:"momentum"`

	// Score is the momentum return at the ranking window.
	Score float64 `json:"score"`

	// MA is the trend-filter moving average; BiasPct the percentage
	// deviation of the last close from it.
	MA      float64 `json:"ma"`
	BiasPct float64 `json:"bias_pct"`
	AboveMA bool    `json:"above_ma"`

	// Bias is the multi-window deviation readout.
	Bias []BiasReading `json:"bias"`
}

// Calculator computes indicator sets.
// SSOT: indicator math lives only in this package.
type Calculator struct {
	logger *logger.Logger
}

// NewCalculator creates a calculator.
func NewCalculator(log *logger.Logger) *Calculator {
	return &Calculator{logger: log}
}

// Compute derives the indicator set for a series. It fails with
// *market.InsufficientHistoryError when the series is shorter than the
// largest window needs.
func (c *Calculator) Compute(series *market.PriceSeries, p Params) (*Set, error) {
	closes := series.Closes()

	need := minBars(p)
	if len(closes) < need {
		return nil, &market.InsufficientHistoryError{
			Symbol: series.Symbol,
			Need:   need,
			Have:   len(closes),
		}
	}

	price := closes[len(closes)-1]

	momentum := make(map[int]float64, len(p.MomentumWindows))
	for _, w := range p.MomentumWindows {
		momentum[w] = simpleReturn(closes, w)
	}

	ma := movingAverage(closes, p.MAWindow)
	biasPct := (price - ma) / ma * 100

	set := &Set{
		Symbol:   series.Symbol,
		Price:    price,
		Momentum: momentum,
		Score:    momentum[p.ScoreWindow],
		MA:       ma,
		BiasPct:  biasPct,
		AboveMA:  price > ma,
		Bias:     biasReadings(closes, p.BiasWindows),
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": series.Symbol,
		"score":  set.Score,
		"bias":   set.BiasPct,
	}).Debug("Computed indicators")
	return set, nil
}

// minBars is the shortest series the params can be computed on. A
// momentum window of W needs W+1 closes; an MA of M needs M.
func minBars(p Params) int {
	need := p.MAWindow
	for _, w := range p.MomentumWindows {
		if w+1 > need {
			need = w + 1
		}
	}
	for _, w := range p.BiasWindows {
		if w > need {
			need = w
		}
	}
	return need
}

// simpleReturn is close[t] / close[t-w] - 1 on the ascending series.
func simpleReturn(closes []float64, w int) float64 {
	last := closes[len(closes)-1]
	past := closes[len(closes)-1-w]
	return last/past - 1
}

// movingAverage is the mean of the last w closes.
func movingAverage(closes []float64, w int) float64 {
	var sum float64
	for _, c := range closes[len(closes)-w:] {
		sum += c
	}
	return sum / float64(w)
}
