package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xldl/etf-rotor/internal/notify"
	"github.com/xldl/etf-rotor/internal/scheduler"
	"github.com/xldl/etf-rotor/internal/scheduler/jobs"
)

// refreshSchedule runs ahead of the report so the evening ranking reads
// a warm cache.
const refreshSchedule = "0 30 17 * * *"

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the daily refresh and report scheduler",
	Long: `Runs the cron scheduler in the configured exchange timezone:

  daily-refresh  17:30        - refresh the price cache for every pool
  daily-report   MAIL time    - rank every pool and dispatch the report

Example:
  go run ./cmd/rotor scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reportSchedule, err := jobs.DailyCron(a.cfg.Mail.DailySendTime)
	if err != nil {
		return err
	}

	sched := scheduler.New(a.log, a.loc)
	sender := notify.NewLogSender(a.log)

	if err := sched.AddJob(jobs.NewRefreshJob(a.registry, a.engine, a.log, refreshSchedule)); err != nil {
		return fmt.Errorf("add refresh job: %w", err)
	}
	if err := sched.AddJob(jobs.NewReportJob(a.registry, a.engine, sender, a.log, a.loc, reportSchedule)); err != nil {
		return fmt.Errorf("add report job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	fmt.Printf("Scheduler running (%s). Jobs: %v\n", a.cfg.Mail.Timezone, sched.GetAllJobs())
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
