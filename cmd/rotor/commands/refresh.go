package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh [pool]",
	Short: "Force a price cache refresh",
	Long: `Forces an upstream fetch for every symbol in one pool (or all
pools), regardless of cache freshness.

Example:
  go run ./cmd/rotor refresh
  go run ./cmd/rotor refresh global`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
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
	var totalFailed int
	for _, pool := range selected {
		refreshed, failed := a.engine.RefreshPool(ctx, pool)
		fmt.Printf("%-12s refreshed %d, failed %d\n", pool.ID, refreshed, failed)
		totalFailed += failed
	}

	if totalFailed > 0 {
		return fmt.Errorf("%d symbols failed to refresh", totalFailed)
	}
	return nil
}
