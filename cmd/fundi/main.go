// Fundi — MCP development tool server for coding agents.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fundi",
	Short: "Fundi — MCP server exposing development tools over stdio.",
	Long: `Fundi is an MCP (Model Context Protocol) server that gives coding agents
a curated set of development tools: allowlisted command execution for npm,
python, go, docker and friends, file and project scaffolding operations,
web endpoint probing, and read-only database queries.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
