// Package server wires the tool registry into an MCP server. This is the
// composition root: it builds the safety gate, supervisor, runner, and
// metrics, registers every tool, and serves the result over stdio.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jkaninda/fundi/internal/config"
	"github.com/jkaninda/fundi/internal/metrics"
	"github.com/jkaninda/fundi/internal/runner"
	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/supervisor"
	"github.com/jkaninda/fundi/internal/tools"
	"github.com/jkaninda/fundi/internal/tools/command"
	"github.com/jkaninda/fundi/internal/tools/database"
	"github.com/jkaninda/fundi/internal/tools/file"
	"github.com/jkaninda/fundi/internal/tools/project"
	"github.com/jkaninda/fundi/internal/tools/webprobe"
	"github.com/jkaninda/fundi/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server holds the composed MCP server and its metrics collector.
type Server struct {
	mcp      *mcpserver.MCPServer
	registry *tools.Registry
	metrics  *metrics.Collector
	config   *config.Config
	logger   *slog.Logger
}

// New composes a Server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	gate := safety.New(cfg.Safety.RestrictedPaths)
	collector := metrics.NewCollector()

	ws, err := initWorkspace(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}
	logger.Debug("workspace initialized", "root", ws.Root)

	sup := supervisor.New(supervisor.Config{
		BaseTimeout: cfg.Exec.BaseTimeout(),
		GracePeriod: cfg.Exec.GracePeriod(),
	}, logger)
	run := runner.New(sup, gate, ws, collector, logger)

	registry := tools.NewRegistry()
	command.Register(registry, run)
	file.Register(registry, gate, ws, logger)
	project.Register(registry, gate, ws, logger)
	webprobe.Register(registry, webprobe.Config{
		Timeout:          time.Duration(cfg.Tools.WebProbe.TimeoutSeconds) * time.Second,
		MaxResponseBytes: cfg.Tools.WebProbe.MaxResponseBytes,
	}, logger)
	database.Register(registry, cfg.Tools.Database, logger)

	s := mcpserver.NewMCPServer(
		"fundi",
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions()),
	)

	srv := &Server{
		mcp:      s,
		registry: registry,
		metrics:  collector,
		config:   cfg,
		logger:   logger,
	}
	for _, t := range registry.All() {
		s.AddTool(srv.definition(t), srv.handler(t))
	}

	logger.Info("server composed", "tools", len(registry.List()), "version", Version)
	return srv, nil
}

// initWorkspace resolves the workspace root from config or falls back to
// the per-user default location.
func initWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	if cfg.Workspace == "" {
		return workspace.Default()
	}
	return workspace.New(cfg.Workspace)
}

// Registry exposes the tool registry, mainly for tests and the CLI tool list.
func (s *Server) Registry() *tools.Registry { return s.registry }

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
// When metrics exposition is enabled it runs alongside on its own listener.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.startMetrics(ctx)
	s.logger.Info("serving MCP over stdio")
	return mcpserver.ServeStdio(s.mcp)
}

// ServeHTTP serves MCP over the streamable HTTP transport on addr and
// shuts down when ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	s.startMetrics(ctx)

	httpSrv := mcpserver.NewStreamableHTTPServer(s.mcp)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http shutdown failed", "error", err)
		}
	}()

	s.logger.Info("serving MCP over http", "addr", addr)
	if err := httpSrv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) startMetrics(ctx context.Context) {
	mc := s.config.Metrics
	if mc == nil || !mc.Enabled {
		return
	}
	go func() {
		if err := s.metrics.Serve(ctx, mc.ListenAddr(), mc.MetricsPath(), s.logger); err != nil {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// definition converts a tool's schema into an MCP tool definition. Schemas
// are authored as map[string]any, so they are passed through raw rather
// than rebuilt with the option helpers.
func (s *Server) definition(t tools.Tool) mcp.Tool {
	schema, err := json.Marshal(t.InputSchema())
	if err != nil {
		// Schemas are static literals; failure here is a programming error.
		panic(fmt.Sprintf("marshaling schema for %s: %v", t.Name(), err))
	}
	return mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema)
}

// handler adapts a tools.Tool into an MCP tool handler, recording per-call
// metrics and mapping structured failures to MCP error results.
func (s *Server) handler(t tools.Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := req.GetArguments()

		if err := t.Validate(params); err != nil {
			s.metrics.ObserveToolCall(t.Name(), "invalid", 0)
			return mcp.NewToolResultError(err.Error()), nil
		}

		start := time.Now()
		res, err := t.Execute(ctx, params)
		elapsed := time.Since(start)
		if err != nil {
			s.metrics.ObserveToolCall(t.Name(), "error", elapsed)
			s.logger.Error("tool execution failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		status := "success"
		if !res.Success {
			status = "failed"
		}
		s.metrics.ObserveToolCall(t.Name(), status, elapsed)

		result := mcp.NewToolResultText(res.Output)
		result.IsError = !res.Success
		return result, nil
	}
}

func instructions() string {
	return `Fundi is a project scaffolding and build server. It executes
allow-listed development commands (npm, npx, python/pip, go, docker,
docker compose, terraform, git, database clients) under a supervising
process manager with timeouts and cleanup, manages project files, creates
projects from templates, and probes running web applications.

Commands are validated against per-family allowlists before anything is
spawned; rejected commands return a structured result naming the rejected
token and the allowed set. All command results share one shape: success,
output, error, return_code, command, working_directory, timed_out.`
}
