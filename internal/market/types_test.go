package market

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testSeries(symbol string, closes ...float64) *PriceSeries {
	bars := make([]PriceBar, len(closes))
	start := day(2026, 1, 5)
	for i, c := range closes {
		bars[i] = PriceBar{Date: start.AddDate(0, 0, i), Close: c, Volume: 1000}
	}
	return &PriceSeries{Symbol: symbol, Bars: bars}
}

func TestSeriesValidate(t *testing.T) {
	s := testSeries("510300", 1.0, 1.1, 1.2)
	if err := s.Validate(); err != nil {
		t.Errorf("valid series rejected: %v", err)
	}

	dup := testSeries("510300", 1.0, 1.1)
	dup.Bars[1].Date = dup.Bars[0].Date
	if err := dup.Validate(); err == nil {
		t.Error("duplicate dates accepted")
	}

	neg := testSeries("510300", 1.0, -0.5)
	if err := neg.Validate(); err == nil {
		t.Error("non-positive close accepted")
	}

	anon := testSeries("", 1.0)
	if err := anon.Validate(); err == nil {
		t.Error("empty symbol accepted")
	}
}

func TestSeriesAccessors(t *testing.T) {
	s := testSeries("159915", 2.0, 2.1, 2.2)
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}

	last, ok := s.LastBar()
	if !ok || last.Close != 2.2 {
		t.Errorf("LastBar() = %+v, %v; want close 2.2", last, ok)
	}

	closes := s.Closes()
	want := []float64{2.0, 2.1, 2.2}
	for i := range want {
		if closes[i] != want[i] {
			t.Errorf("Closes()[%d] = %v, want %v", i, closes[i], want[i])
		}
	}

	empty := &PriceSeries{Symbol: "x"}
	if _, ok := empty.LastBar(); ok {
		t.Error("LastBar() on empty series reported ok")
	}
}

func TestLastTradingDay(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "weekday after close counts today",
			now:  time.Date(2026, 8, 26, 16, 0, 0, 0, loc), // Wednesday
			want: day(2026, 8, 26),
		},
		{
			name: "weekday before close rolls back",
			now:  time.Date(2026, 8, 26, 10, 0, 0, 0, loc),
			want: day(2026, 8, 25),
		},
		{
			name: "saturday rolls back to friday",
			now:  time.Date(2026, 8, 22, 12, 0, 0, 0, loc),
			want: day(2026, 8, 21),
		},
		{
			name: "monday morning rolls back to friday",
			now:  time.Date(2026, 8, 24, 9, 0, 0, 0, loc),
			want: day(2026, 8, 21),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastTradingDay(tt.now, loc); !got.Equal(tt.want) {
				t.Errorf("LastTradingDay() = %s, want %s",
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestProviderErrorWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("refresh: %w", &ProviderError{
		Provider: "eastmoney", Symbol: "510300", Transient: true, Err: base,
	})

	if !IsTransient(err) {
		t.Error("IsTransient() = false for wrapped transient error")
	}
	if !errors.Is(err, base) {
		t.Error("errors.Is() lost the underlying cause")
	}
	if IsTransient(errors.New("other")) {
		t.Error("IsTransient() = true for unrelated error")
	}
}
