// Package main is the entry point for the insightai CLI.
package main

import (
	"os"

	"github.com/insight-labs/insightai/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
