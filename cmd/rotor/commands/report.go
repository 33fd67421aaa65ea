package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xldl/etf-rotor/internal/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [pool]",
	Short: "Run the rotation and print the ranking report",
	Long: `Runs the momentum rotation for one pool (or all pools) and prints
the ranking report. Price data is refreshed first unless the cache
already covers the latest trading day.

Example:
  go run ./cmd/rotor report
  go run ./cmd/rotor report default`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	selected, err := a.poolsForArg(arg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, pool := range selected {
		result, err := a.engine.Run(ctx, pool)
		if err != nil {
			return fmt.Errorf("pool %s: %w", pool.ID, err)
		}

		rep := report.Build(pool, result, time.Now().In(a.loc))
		fmt.Println(report.RenderText(rep))
	}
	return nil
}
