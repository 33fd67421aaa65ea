package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// poolsCmd represents the pools command
var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List configured pools",
	Long: `Lists the pools from the pools file with their strategy
parameters.

Example:
  go run ./cmd/rotor pools`,
	RunE: runPools,
}

func init() {
	rootCmd.AddCommand(poolsCmd)
}

func runPools(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("%-12s %-24s %8s %6s %6s %6s  %s\n",
		"ID", "NAME", "SYMBOLS", "TOP", "MOM", "MA", "TREND")
	for _, p := range a.registry.All() {
		fmt.Printf("%-12s %-24s %8d %6d %6d %6d  %v\n",
			p.ID, p.Name, len(p.Symbols), p.TopN, p.ScoreWindow, p.MAWindow,
			p.TrendFilterEnabled())
	}
	return nil
}
