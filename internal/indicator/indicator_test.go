package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/pkg/config"
	"github.com/xldl/etf-rotor/pkg/logger"
)

func testLogger() *logger.Logger {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func seriesFromCloses(symbol string, closes ...float64) *market.PriceSeries {
	bars := make([]market.PriceBar, len(closes))
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = market.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return &market.PriceSeries{Symbol: symbol, Bars: bars}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeMomentum(t *testing.T) {
	// close/close[-3] - 1 on the last bar: 121/100 - 1 = 0.21
	s := seriesFromCloses("510300", 100, 105, 110, 121)
	calc := NewCalculator(testLogger())

	set, err := calc.Compute(s, Params{
		MomentumWindows: []int{3},
		ScoreWindow:     3,
		MAWindow:        3,
		BiasWindows:     []int{3},
	})
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if !almostEqual(set.Momentum[3], 0.21) {
		t.Errorf("Momentum[3] = %v, want 0.21", set.Momentum[3])
	}
	if !almostEqual(set.Score, 0.21) {
		t.Errorf("Score = %v, want 0.21", set.Score)
	}
}

func TestComputeMAAndBias(t *testing.T) {
	// MA(5) = 104, bias = (108-104)/104*100 ≈ 3.846%
	s := seriesFromCloses("510300", 100, 102, 104, 106, 108)
	calc := NewCalculator(testLogger())

	set, err := calc.Compute(s, Params{
		MomentumWindows: []int{4},
		ScoreWindow:     4,
		MAWindow:        5,
		BiasWindows:     []int{5},
	})
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if !almostEqual(set.MA, 104) {
		t.Errorf("MA = %v, want 104", set.MA)
	}
	want := (108.0 - 104.0) / 104.0 * 100
	if !almostEqual(set.BiasPct, want) {
		t.Errorf("BiasPct = %v, want %v", set.BiasPct, want)
	}
	if !set.AboveMA {
		t.Error("AboveMA = false with close above MA")
	}
}

func TestComputeInsufficientHistory(t *testing.T) {
	s := seriesFromCloses("510300", 100, 101, 102)
	calc := NewCalculator(testLogger())

	_, err := calc.Compute(s, Params{
		MomentumWindows: []int{20},
		ScoreWindow:     20,
		MAWindow:        28,
		BiasWindows:     []int{6, 12, 24},
	})
	var ih *market.InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Fatalf("err = %v, want InsufficientHistoryError", err)
	}
	if ih.Need != 28 || ih.Have != 3 {
		t.Errorf("Need/Have = %d/%d, want 28/3", ih.Need, ih.Have)
	}
}

func TestMinBarsTakesLargestWindow(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want int
	}{
		{
			name: "momentum window dominates",
			p:    Params{MomentumWindows: []int{60}, ScoreWindow: 60, MAWindow: 28, BiasWindows: []int{6}},
			want: 61,
		},
		{
			name: "ma window dominates",
			p:    Params{MomentumWindows: []int{20}, ScoreWindow: 20, MAWindow: 28, BiasWindows: []int{24}},
			want: 28,
		},
		{
			name: "bias window dominates",
			p:    Params{MomentumWindows: []int{5}, ScoreWindow: 5, MAWindow: 10, BiasWindows: []int{48}},
			want: 48,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := minBars(tt.p); got != tt.want {
				t.Errorf("minBars() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBiasVerdicts(t *testing.T) {
	// Flat at 100 then a jump to 110: short MAs flag overbought.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	closes[29] = 110

	readings := biasReadings(closes, []int{6, 12, 24})
	if len(readings) != 3 {
		t.Fatalf("got %d readings, want 3", len(readings))
	}

	for _, r := range readings {
		if r.BiasPct <= 0 {
			t.Errorf("window %d: BiasPct = %v, want positive", r.Window, r.BiasPct)
		}
		if r.Verdict != VerdictOverbought {
			t.Errorf("window %d: verdict = %s, want overbought", r.Window, r.Verdict)
		}
	}

	// Flat series stays normal everywhere.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	for _, r := range biasReadings(flat, []int{6, 12, 24}) {
		if r.Verdict != VerdictNormal {
			t.Errorf("window %d: verdict = %s on flat series, want normal", r.Window, r.Verdict)
		}
	}
}

func TestDynamicThreshold(t *testing.T) {
	// mean 2, stddev 1 → mean + 2σ = 4
	values := []float64{1, 3, 1, 3}
	if got := DynamicThreshold(values, 2); !almostEqual(got, 4) {
		t.Errorf("DynamicThreshold() = %v, want 4", got)
	}
	if got := DynamicThreshold(nil, 2); got != 0 {
		t.Errorf("DynamicThreshold(nil) = %v, want 0", got)
	}
}
