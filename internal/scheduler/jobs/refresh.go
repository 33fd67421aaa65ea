// Package jobs holds the concrete scheduled jobs: the daily cache
// refresh and the daily report dispatch.
package jobs

import (
	"context"
	"fmt"

	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/rotation"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// RefreshJob refreshes the price cache for every configured pool ahead
// of the evening report, so the report job reads a warm cache.
type RefreshJob struct {
	registry *pools.Registry
	engine   *rotation.Engine
	logger   *logger.Logger
	schedule string
}

// NewRefreshJob creates the daily refresh job. schedule is a six-field
// cron expression.
func NewRefreshJob(registry *pools.Registry, engine *rotation.Engine, log *logger.Logger, schedule string) *RefreshJob {
	return &RefreshJob{
		registry: registry,
		engine:   engine,
		logger:   log.WithField("job", "daily-refresh"),
		schedule: schedule,
	}
}

// Name implements scheduler.Job.
func (j *RefreshJob) Name() string { return "daily-refresh" }

// Schedule implements scheduler.Job.
func (j *RefreshJob) Schedule() string { return j.schedule }

// Run refreshes every pool. A pool with some failed symbols is not an
// error; only a pool where nothing refreshed fails the job so the
// scheduler retries it.
func (j *RefreshJob) Run(ctx context.Context) error {
	var dead []string
	for _, pool := range j.registry.All() {
		refreshed, failed := j.engine.RefreshPool(ctx, pool)
		j.logger.WithFields(map[string]interface{}{
			"pool":      pool.ID,
			"refreshed": refreshed,
			"failed":    failed,
		}).Info("Pool cache refreshed")

		if refreshed == 0 && failed > 0 {
			dead = append(dead, pool.ID)
		}
	}

	if len(dead) > 0 {
		return fmt.Errorf("no symbols refreshed for pools %v", dead)
	}
	return nil
}
