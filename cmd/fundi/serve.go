package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/jkaninda/fundi/internal/config"
	"github.com/jkaninda/fundi/internal/server"
)

var (
	serveConfigPath string
	serveHTTPAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	RunE:  runServe,
}

func init() {
	// Register the flag on both root and serve so that
	// `fundi --config path` and `fundi serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&serveHTTPAddr, "http", "", "serve MCP over streamable HTTP on this address (e.g. :8080) instead of stdio")
	}
}

// runServe loads configuration, builds the tool server and speaks MCP
// over stdin/stdout until the client disconnects or a signal arrives.
// Logs go to stderr so they never corrupt the protocol stream.
func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	path := goutils.Env("FUNDI_CONFIG", serveConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		// A missing config file is fine: the server runs with built-in
		// defaults. Anything else (parse error, bad values) is fatal.
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		logger.Info("no config file found, using defaults", slog.String("path", path))
		cfg = config.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting fundi MCP server",
		slog.String("version", server.Version),
		slog.String("workspace", cfg.Workspace),
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	if serveHTTPAddr != "" {
		return srv.ServeHTTP(ctx, serveHTTPAddr)
	}
	return srv.ServeStdio(ctx)
}
