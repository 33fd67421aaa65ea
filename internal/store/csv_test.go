package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xldl/etf-rotor/internal/market"
)

func TestCSVRoundTrip(t *testing.T) {
	backend, err := NewCSVBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVBackend() failed: %v", err)
	}

	refreshed := time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC)
	in := &market.PriceSeries{
		Symbol: "510300",
		Bars: []market.PriceBar{
			{Date: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), Open: 3.95, High: 4.01, Low: 3.94, Close: 3.99, Volume: 2345678},
			{Date: time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), Open: 3.99, High: 4.05, Low: 3.98, Close: 4.02, Volume: 3456789},
		},
		RefreshedAt: refreshed,
	}

	if err := backend.Save(context.Background(), in); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	out, err := backend.Load(context.Background(), "510300")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if out == nil {
		t.Fatal("Load() returned nil for saved symbol")
	}
	if out.Len() != 2 {
		t.Fatalf("loaded %d bars, want 2", out.Len())
	}
	if out.Bars[1].Close != 4.02 || out.Bars[1].Volume != 3456789 {
		t.Errorf("bar = %+v, want close 4.02 volume 3456789", out.Bars[1])
	}
	if !out.RefreshedAt.Equal(refreshed) {
		t.Errorf("RefreshedAt = %v, want %v", out.RefreshedAt, refreshed)
	}
}

func TestCSVLoadMissingSymbol(t *testing.T) {
	backend, err := NewCSVBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVBackend() failed: %v", err)
	}

	out, err := backend.Load(context.Background(), "999999")
	if err != nil {
		t.Fatalf("Load() on missing symbol failed: %v", err)
	}
	if out != nil {
		t.Errorf("Load() on missing symbol = %+v, want nil", out)
	}
}

func TestCSVLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewCSVBackend(dir)
	if err != nil {
		t.Fatalf("NewCSVBackend() failed: %v", err)
	}

	path := filepath.Join(dir, "510300_data.csv")
	content := "date,open,high,low,close,volume\n2026-08-26,not-a-number,4.05,3.98,4.02,100\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := backend.Load(context.Background(), "510300"); err == nil {
		t.Error("Load() accepted corrupt cache file")
	}
}

func TestCSVSurvivesMissingMeta(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewCSVBackend(dir)
	if err != nil {
		t.Fatalf("NewCSVBackend() failed: %v", err)
	}

	in := &market.PriceSeries{
		Symbol: "159915",
		Bars: []market.PriceBar{
			{Date: time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), Open: 2.0, High: 2.1, Low: 1.9, Close: 2.05, Volume: 100},
		},
		RefreshedAt: time.Now(),
	}
	if err := backend.Save(context.Background(), in); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, metaFileName)); err != nil {
		t.Fatalf("remove meta: %v", err)
	}

	out, err := backend.Load(context.Background(), "159915")
	if err != nil {
		t.Fatalf("Load() without meta failed: %v", err)
	}
	if out == nil || out.Len() != 1 {
		t.Fatalf("Load() without meta = %+v, want 1 bar", out)
	}
	if !out.RefreshedAt.IsZero() {
		t.Errorf("RefreshedAt = %v, want zero when meta is missing", out.RefreshedAt)
	}
}
