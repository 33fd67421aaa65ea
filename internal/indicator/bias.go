package indicator

import "math"

// Verdict labels one bias reading against its window threshold.
type Verdict string

const (
	VerdictOverbought Verdict = "overbought"
	VerdictOversold   Verdict = "oversold"
	VerdictNormal     Verdict = "normal"
)

// Default per-window thresholds in percent. Shorter MAs tolerate wider
// deviation before the reading counts as stretched.
var defaultThresholds = map[int]float64{
	6:  5.0,
	12: 3.0,
	24: 2.0,
}

const fallbackThreshold = 3.0

// BiasReading is the deviation of the last close from one MA window.
type BiasReading struct {
	Window       int     `json:"window"`
	MA           float64 `json:"ma"`
	BiasPct      float64 `json:"bias_pct"`
	ThresholdPct float64 `json:"threshold_pct"`
	Verdict      Verdict `json:"verdict"`
}

// biasReadings computes one reading per window, shortest first, skipping
// windows the series cannot cover (caller guarantees at least the
// largest configured window via minBars).
func biasReadings(closes []float64, windows []int) []BiasReading {
	out := make([]BiasReading, 0, len(windows))
	price := closes[len(closes)-1]

	for _, w := range windows {
		if len(closes) < w {
			continue
		}
		ma := movingAverage(closes, w)
		biasPct := (price - ma) / ma * 100
		threshold := defaultThresholds[w]
		if threshold == 0 {
			threshold = fallbackThreshold
		}

		verdict := VerdictNormal
		switch {
		case biasPct > threshold:
			verdict = VerdictOverbought
		case biasPct < -threshold:
			verdict = VerdictOversold
		}

		out = append(out, BiasReading{
			Window:       w,
			MA:           ma,
			BiasPct:      biasPct,
			ThresholdPct: threshold,
			Verdict:      verdict,
		})
	}
	return out
}

// DynamicThreshold returns mean + mult*stddev of the absolute bias
// history, a self-calibrating alternative to the fixed per-window
// thresholds.
func DynamicThreshold(values []float64, mult float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(values)))

	return mean + mult*std
}
