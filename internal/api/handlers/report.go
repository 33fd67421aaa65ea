package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/report"
	"github.com/xldl/etf-rotor/internal/rotation"
	"github.com/xldl/etf-rotor/pkg/logger"
	"github.com/xldl/etf-rotor/pkg/redis"
)

// ReportHandler serves the pool and report endpoints.
// SSOT: the HTTP report surface is defined only here.
type ReportHandler struct {
	registry *pools.Registry
	engine   *rotation.Engine
	cache    *redis.Cache
	logger   *logger.Logger
	loc      *time.Location
}

// NewReportHandler creates a report handler. cache may be backed by a
// disabled Redis client; lookups then always miss.
func NewReportHandler(registry *pools.Registry, engine *rotation.Engine, cache *redis.Cache, log *logger.Logger, loc *time.Location) *ReportHandler {
	return &ReportHandler{
		registry: registry,
		engine:   engine,
		cache:    cache,
		logger:   log,
		loc:      loc,
	}
}

// poolSummary is the list-view shape of a pool.
type poolSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Symbols     int    `json:"symbols"`
	TopN        int    `json:"top_n"`
}

// ListPools returns the configured pools.
// GET /api/pools
func (h *ReportHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	items := make([]poolSummary, 0, len(all))
	for _, p := range all {
		items = append(items, poolSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Symbols:     len(p.Symbols),
			TopN:        p.TopN,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    items,
	})
}

// GetReport returns the current ranking report for a pool, from the
// Redis cache when a fresh copy exists.
// GET /api/pools/{id}/report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pool, ok := h.registry.Get(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "unknown pool")
		return
	}

	day := market.LastTradingDay(time.Now(), h.loc).Format("2006-01-02")
	cacheKey := redis.ReportKey(pool.ID, day)

	var cached report.Report
	if hit, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"cached":  true,
			"data":    &cached,
		})
		return
	}

	result, err := h.engine.Run(ctx, pool)
	if err != nil {
		if errors.Is(err, market.ErrEmptyPool) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.WithError(err).WithField("pool", pool.ID).Error("Pool run failed")
		respondError(w, http.StatusInternalServerError, "pool run failed")
		return
	}

	rep := report.Build(pool, result, time.Now().In(h.loc))

	if err := h.cache.Set(ctx, cacheKey, rep, redis.TTLReport); err != nil {
		h.logger.WithError(err).WithField("pool", pool.ID).Warn("Failed to cache report")
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cached":  false,
		"data":    rep,
	})
}

// Refresh forces a cache refresh for every symbol in a pool and
// invalidates the cached report.
// POST /api/pools/{id}/refresh
func (h *ReportHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pool, ok := h.registry.Get(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "unknown pool")
		return
	}

	refreshed, failed := h.engine.RefreshPool(ctx, pool)

	day := market.LastTradingDay(time.Now(), h.loc).Format("2006-01-02")
	if err := h.cache.Delete(ctx, redis.ReportKey(pool.ID, day)); err != nil {
		h.logger.WithError(err).WithField("pool", pool.ID).Warn("Failed to invalidate report cache")
	}

	status := http.StatusOK
	if refreshed == 0 && failed > 0 {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]interface{}{
		"success": failed == 0,
		"data": map[string]interface{}{
			"pool":      pool.ID,
			"refreshed": refreshed,
			"failed":    failed,
		},
	})
}
