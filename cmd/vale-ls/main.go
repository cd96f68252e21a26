// Package main is the entry point for the vale-ls language server and CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/vale-ls/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
