package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/xldl/etf-rotor/internal/notify"
	"github.com/xldl/etf-rotor/internal/pools"
	"github.com/xldl/etf-rotor/internal/report"
	"github.com/xldl/etf-rotor/internal/rotation"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// ReportJob builds the evening report for every pool and hands it to
// the notification sender.
type ReportJob struct {
	registry *pools.Registry
	engine   *rotation.Engine
	sender   notify.Sender
	logger   *logger.Logger
	loc      *time.Location
	schedule string
}

// NewReportJob creates the daily report job.
func NewReportJob(registry *pools.Registry, engine *rotation.Engine, sender notify.Sender, log *logger.Logger, loc *time.Location, schedule string) *ReportJob {
	return &ReportJob{
		registry: registry,
		engine:   engine,
		sender:   sender,
		logger:   log.WithField("job", "daily-report"),
		loc:      loc,
		schedule: schedule,
	}
}

// Name implements scheduler.Job.
func (j *ReportJob) Name() string { return "daily-report" }

// Schedule implements scheduler.Job.
func (j *ReportJob) Schedule() string { return j.schedule }

// Run ranks each pool and dispatches its report. Pools that fail keep
// the job going; the job itself fails only when every pool failed.
func (j *ReportJob) Run(ctx context.Context) error {
	var failed int
	all := j.registry.All()

	for _, pool := range all {
		if err := j.reportPool(ctx, pool); err != nil {
			j.logger.WithError(err).WithField("pool", pool.ID).Error("Report dispatch failed")
			failed++
		}
	}

	if failed == len(all) {
		return fmt.Errorf("all %d pool reports failed", failed)
	}
	return nil
}

func (j *ReportJob) reportPool(ctx context.Context, pool *pools.Pool) error {
	result, err := j.engine.Run(ctx, pool)
	if err != nil {
		return err
	}

	now := time.Now().In(j.loc)
	rep := report.Build(pool, result, now)

	html, err := report.RenderHTML(rep)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] Rotation report %s", pool.Name, now.Format("2006-01-02"))
	if rep.Stale {
		subject += " (stale data)"
	}

	return j.sender.Send(ctx, notify.Message{
		Subject:  subject,
		HTMLBody: html,
		TextBody: report.RenderText(rep),
	})
}

// DailyCron converts a "HH:MM" wall-clock time to the six-field cron
// expression the scheduler expects.
func DailyCron(hhmm string) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", fmt.Errorf("invalid daily time %q: %w", hhmm, err)
	}
	return fmt.Sprintf("0 %d %d * * *", t.Minute(), t.Hour()), nil
}
