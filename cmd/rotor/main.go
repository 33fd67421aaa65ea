package main

import (
	"os"

	"github.com/xldl/etf-rotor/cmd/rotor/commands"
)

// main is the entry point for the rotor CLI
// Unified CLI entry point: go run ./cmd/rotor [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
