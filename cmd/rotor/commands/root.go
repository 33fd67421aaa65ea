package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	poolsFile string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rotor",
	Short: "ETF momentum rotation engine",
	Long: `etf-rotor Unified CLI

Momentum rotation over configured ETF pools: price caching, indicator
computation, ranking and daily report dispatch.

Usage:
  go run ./cmd/rotor [command]

Examples:
  go run ./cmd/rotor report default
  go run ./cmd/rotor refresh
  go run ./cmd/rotor api
  go run ./cmd/rotor scheduler`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&poolsFile, "pools", "", "pools file (default from POOLS_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
