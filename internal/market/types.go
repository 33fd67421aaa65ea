package market

import (
	"fmt"
	"time"
)

// PriceBar is one trading-day observation for a symbol.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is the ordered daily history for one symbol plus its
// freshness marker. Bars are date ascending with no duplicate dates.
// Owned by the price store; consumers must treat it as read-only.
type PriceSeries struct {
	Symbol      string     `json:"symbol"`
	Bars        []PriceBar `json:"bars"`
	RefreshedAt time.Time  `json:"refreshed_at"`
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	return len(s.Bars)
}

// LastBar returns the most recent bar, or false when the series is empty.
func (s *PriceSeries) LastBar() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close prices in date-ascending order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Validate checks the series invariants: ascending dates, no duplicates,
// positive closes.
func (s *PriceSeries) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("series has no symbol")
	}
	for i, b := range s.Bars {
		if b.Close <= 0 {
			return fmt.Errorf("%s: bar %d (%s) has non-positive close %v",
				s.Symbol, i, b.Date.Format("2006-01-02"), b.Close)
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Date
		if !b.Date.After(prev) {
			return fmt.Errorf("%s: bar %d (%s) is not after previous bar (%s)",
				s.Symbol, i, b.Date.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
	}
	return nil
}

// LastTradingDay returns the most recent expected trading day in loc at
// the given instant. Before the daily close (15:00 local) the current day
// does not count yet; weekends roll back to Friday. Exchange holidays are
// not modeled here — the store's refreshed-at marker absorbs them.
func LastTradingDay(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

	if t.Hour() < 15 {
		day = day.AddDate(0, 0, -1)
	}
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// SameDay reports whether two instants fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
