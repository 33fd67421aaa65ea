package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xldl/etf-rotor/internal/indicator"
	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/rotation"
	"github.com/xldl/etf-rotor/internal/store"
	"github.com/xldl/etf-rotor/pkg/config"
	"github.com/xldl/etf-rotor/pkg/logger"
	"github.com/xldl/etf-rotor/pkg/redis"
)

func testLogger() *logger.Logger {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

type fakeProvider struct {
	bars map[string][]market.PriceBar
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceBar, error) {
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, &market.ProviderError{Provider: "fake", Symbol: symbol, Transient: false,
			Err: errors.New("unknown symbol")}
	}
	return bars, nil
}

func trendBars(n int, start, step float64) []market.PriceBar {
	last := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	bars := make([]market.PriceBar, n)
	for i := 0; i < n; i++ {
		bars[i] = market.PriceBar{
			Date:   last.AddDate(0, 0, i-n+1),
			Open:   start,
			High:   start,
			Low:    start,
			Close:  start + float64(i)*step,
			Volume: 100,
		}
	}
	return bars
}

func testRegistry(t *testing.T) *pools.Registry {
	t.Helper()
	content := `
pools:
  - id: default
    name: Core rotation
    symbols:
      - code: "riser"
        name: Riser ETF
      - code: "flat"
        name: Flat ETF
`
	path := filepath.Join(t.TempDir(), "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	reg, err := pools.Load(path)
	require.NoError(t, err)
	return reg
}

func newTestHandler(t *testing.T) *ReportHandler {
	t.Helper()
	backend, err := store.NewCSVBackend(t.TempDir())
	require.NoError(t, err)

	prov := &fakeProvider{bars: map[string][]market.PriceBar{
		"riser": trendBars(60, 100, 1.0),
		"flat":  trendBars(60, 100, 0.0),
	}}
	priceStore := store.New(backend, prov, testLogger(), time.UTC)
	engine := rotation.NewEngine(priceStore, indicator.NewCalculator(testLogger()),
		rotation.NewRanker(testLogger()), testLogger(), 2)

	client, err := redis.New(&config.Config{}) // disabled: no-op cache
	require.NoError(t, err)
	cache := redis.NewCache(client, "rotor")

	return NewReportHandler(testRegistry(t), engine, cache, testLogger(), time.UTC)
}

func testRouter(h *ReportHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/pools", h.ListPools).Methods("GET")
	r.HandleFunc("/api/pools/{id}/report", h.GetReport).Methods("GET")
	r.HandleFunc("/api/pools/{id}/refresh", h.Refresh).Methods("POST")
	return r
}

func TestListPools(t *testing.T) {
	router := testRouter(newTestHandler(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pools", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			ID      string `json:"id"`
			Symbols int    `json:"symbols"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "default", resp.Data[0].ID)
	assert.Equal(t, 2, resp.Data[0].Symbols)
}

func TestGetReport(t *testing.T) {
	router := testRouter(newTestHandler(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pools/default/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Cached  bool `json:"cached"`
		Data    struct {
			PoolID  string   `json:"pool_id"`
			Holds   []string `json:"holds"`
			Entries []struct {
				Symbol string `json:"symbol"`
				Rank   int    `json:"rank"`
			} `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	assert.False(t, resp.Cached)
	assert.Equal(t, "default", resp.Data.PoolID)
	require.Len(t, resp.Data.Entries, 2)
	assert.Equal(t, "riser", resp.Data.Entries[0].Symbol)
	assert.Equal(t, []string{"riser"}, resp.Data.Holds) // flat sits on its MA, trend filter drops it
}

func TestGetReportUnknownPool(t *testing.T) {
	router := testRouter(newTestHandler(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pools/nope/report", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshPool(t *testing.T) {
	router := testRouter(newTestHandler(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pools/default/refresh", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Refreshed int `json:"refreshed"`
			Failed    int `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.Refreshed)
	assert.Equal(t, 0, resp.Data.Failed)
}
