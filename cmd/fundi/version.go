package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jkaninda/fundi/internal/server"
)

// Set at build time via -ldflags.
var (
	commit = "unknown"
	date   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("fundi %s (commit: %s, built: %s)\n", server.Version, commit, date)
	},
}
