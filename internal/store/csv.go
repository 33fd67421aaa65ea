package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/xldl/etf-rotor/internal/market"
)

// csvHeader is the column layout of a per-symbol cache file.
var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

const metaFileName = "cache_meta.json"

// CSVBackend stores one CSV file per symbol plus a shared metadata file
// with refresh timestamps. Writes go through a temp file and rename so a
// crash never leaves a half-written cache.
type CSVBackend struct {
	dir string

	metaMu sync.Mutex
}

type cacheMeta struct {
	RefreshedAt map[string]time.Time `json:"refreshed_at"`
}

// NewCSVBackend creates the cache directory if needed.
func NewCSVBackend(dir string) (*CSVBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &CSVBackend{dir: dir}, nil
}

func (b *CSVBackend) symbolPath(symbol string) string {
	return filepath.Join(b.dir, symbol+"_data.csv")
}

// Load reads the cached series for symbol. Missing files mean no cache,
// not an error.
func (b *CSVBackend) Load(ctx context.Context, symbol string) (*market.PriceSeries, error) {
	f, err := os.Open(b.symbolPath(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open cache for %s: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cache for %s: %w", symbol, err)
	}
	if len(records) < 2 {
		return nil, nil // header only, treat as no cache
	}

	bars := make([]market.PriceBar, 0, len(records)-1)
	for i, rec := range records[1:] {
		bar, err := parseCSVBar(rec)
		if err != nil {
			return nil, fmt.Errorf("cache for %s: row %d: %w", symbol, i+2, err)
		}
		bars = append(bars, bar)
	}

	series := &market.PriceSeries{
		Symbol:      symbol,
		Bars:        bars,
		RefreshedAt: b.refreshedAt(symbol),
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("cache for %s is corrupt: %w", symbol, err)
	}
	return series, nil
}

// Save writes the series and updates the refresh timestamp.
func (b *CSVBackend) Save(ctx context.Context, series *market.PriceSeries) error {
	tmp, err := os.CreateTemp(b.dir, series.Symbol+"_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, bar := range series.Bars {
		rec := []string{
			bar.Date.Format("2006-01-02"),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatInt(bar.Volume, 10),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write bar: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, b.symbolPath(series.Symbol)); err != nil {
		return fmt.Errorf("replace cache for %s: %w", series.Symbol, err)
	}

	return b.setRefreshedAt(series.Symbol, series.RefreshedAt)
}

func parseCSVBar(rec []string) (market.PriceBar, error) {
	if len(rec) != len(csvHeader) {
		return market.PriceBar{}, fmt.Errorf("want %d fields, got %d", len(csvHeader), len(rec))
	}
	date, err := time.Parse("2006-01-02", rec[0])
	if err != nil {
		return market.PriceBar{}, fmt.Errorf("bad date %q: %w", rec[0], err)
	}
	open, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return market.PriceBar{}, fmt.Errorf("bad open %q: %w", rec[1], err)
	}
	high, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return market.PriceBar{}, fmt.Errorf("bad high %q: %w", rec[2], err)
	}
	low, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return market.PriceBar{}, fmt.Errorf("bad low %q: %w", rec[3], err)
	}
	closePx, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return market.PriceBar{}, fmt.Errorf("bad close %q: %w", rec[4], err)
	}
	volume, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return market.PriceBar{}, fmt.Errorf("bad volume %q: %w", rec[5], err)
	}
	return market.PriceBar{Date: date, Open: open, High: high, Low: low, Close: closePx, Volume: volume}, nil
}

func (b *CSVBackend) refreshedAt(symbol string) time.Time {
	b.metaMu.Lock()
	defer b.metaMu.Unlock()
	meta := b.loadMeta()
	return meta.RefreshedAt[symbol]
}

func (b *CSVBackend) setRefreshedAt(symbol string, at time.Time) error {
	b.metaMu.Lock()
	defer b.metaMu.Unlock()

	meta := b.loadMeta()
	meta.RefreshedAt[symbol] = at

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache meta: %w", err)
	}

	tmp := filepath.Join(b.dir, metaFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(b.dir, metaFileName)); err != nil {
		return fmt.Errorf("replace cache meta: %w", err)
	}
	return nil
}

// loadMeta tolerates a missing or corrupt meta file: losing refresh
// timestamps only costs one extra fetch.
func (b *CSVBackend) loadMeta() cacheMeta {
	meta := cacheMeta{RefreshedAt: make(map[string]time.Time)}
	data, err := os.ReadFile(filepath.Join(b.dir, metaFileName))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.RefreshedAt == nil {
		meta.RefreshedAt = make(map[string]time.Time)
	}
	return meta
}
