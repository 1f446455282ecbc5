package command

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jkaninda/fundi/internal/runner"
	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/supervisor"
	"github.com/jkaninda/fundi/internal/tools"
)

type scriptedExecutor struct {
	outcomes []supervisor.Outcome
	requests []supervisor.Request
}

func (s *scriptedExecutor) Run(_ context.Context, req supervisor.Request) supervisor.Outcome {
	s.requests = append(s.requests, req)
	if len(s.outcomes) == 0 {
		return supervisor.Outcome{Stdout: "ok"}
	}
	out := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return out
}

func (s *scriptedExecutor) BaseTimeout() time.Duration { return 60 * time.Second }

func newRegistry(exec runner.Executor) *tools.Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := runner.New(exec, safety.New(nil), nil, nil, logger)
	reg := tools.NewRegistry()
	Register(reg, r)
	return reg
}

func TestRegisterAllTools(t *testing.T) {
	reg := newRegistry(&scriptedExecutor{})

	want := []string{
		"initialize_git_repository",
		"run_database_command",
		"run_docker_command",
		"run_docker_compose",
		"run_git_command",
		"run_go_command",
		"run_npm_command",
		"run_npx_command",
		"run_python_command",
		"run_shell_command",
		"run_terraform_command",
	}
	got := reg.List()
	if len(got) != len(want) {
		t.Fatalf("registered %d tools, want %d: %v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("tool[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestFamilyToolExecute(t *testing.T) {
	exec := &scriptedExecutor{}
	reg := newRegistry(exec)

	tool := reg.Get("run_shell_command")
	res, err := tool.Execute(context.Background(), map[string]any{
		"command": "echo hello",
		"cwd":     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success {
		t.Errorf("result not successful: %s", res.Output)
	}

	var payload runner.Result
	if err := json.Unmarshal([]byte(res.Output), &payload); err != nil {
		t.Fatalf("output is not a JSON Result: %v", err)
	}
	if payload.Command != "echo hello" {
		t.Errorf("payload.Command = %q", payload.Command)
	}
}

func TestFamilyToolValidateMissingCommand(t *testing.T) {
	reg := newRegistry(&scriptedExecutor{})

	if err := reg.Get("run_npm_command").Validate(map[string]any{}); err == nil {
		t.Error("Validate() expected error for missing command")
	}
	if err := reg.Get("run_npm_command").Validate(map[string]any{"command": 7}); err == nil {
		t.Error("Validate() expected error for non-string command")
	}
}

func TestRejectionReportedNotError(t *testing.T) {
	exec := &scriptedExecutor{}
	reg := newRegistry(exec)

	res, err := reg.Get("run_shell_command").Execute(context.Background(), map[string]any{
		"command": "rm -rf /",
		"cwd":     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("policy rejection should be a structured result, not an error: %v", err)
	}
	if res.Success {
		t.Error("rejected command reported success")
	}
	if !strings.Contains(res.Output, "Command not allowed") {
		t.Errorf("output missing rejection message: %s", res.Output)
	}
	if len(exec.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(exec.requests))
	}
}

func TestDatabaseToolValidate(t *testing.T) {
	reg := newRegistry(&scriptedExecutor{})
	tool := reg.Get("run_database_command")

	if err := tool.Validate(map[string]any{"command": "psql", "db_type": "postgresql"}); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if err := tool.Validate(map[string]any{"command": "psql", "db_type": "oracle"}); err == nil {
		t.Error("Validate() expected error for unsupported engine")
	}
	if err := tool.Validate(map[string]any{"command": "psql"}); err == nil {
		t.Error("Validate() expected error for missing db_type")
	}
}

func TestDatabaseToolEchoesContainer(t *testing.T) {
	exec := &scriptedExecutor{
		outcomes: []supervisor.Outcome{
			{ExitCode: 0, Stdout: "pgbox\n"},
			{ExitCode: 0, Stdout: "1"},
		},
	}
	reg := newRegistry(exec)

	res, err := reg.Get("run_database_command").Execute(context.Background(), map[string]any{
		"command":          "psql -c 'select 1'",
		"db_type":          "postgresql",
		"cwd":              t.TempDir(),
		"docker_container": "pgbox",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var payload runner.Result
	if err := json.Unmarshal([]byte(res.Output), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.DockerContainer != "pgbox" {
		t.Errorf("DockerContainer = %q, want pgbox", payload.DockerContainer)
	}
}

func TestGitInitToolDefaultsPath(t *testing.T) {
	exec := &scriptedExecutor{
		outcomes: []supervisor.Outcome{
			{ExitCode: 0, Stdout: "git version 2.43.0"},
			{ExitCode: 0},
		},
	}
	reg := newRegistry(exec)

	tool := reg.Get("initialize_git_repository")
	if err := tool.Validate(map[string]any{}); err != nil {
		t.Errorf("Validate() with no params should pass: %v", err)
	}

	res, err := tool.Execute(context.Background(), map[string]any{"path": t.TempDir()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success {
		t.Errorf("git init failed: %s", res.Output)
	}
	if !strings.Contains(res.Output, "git_version") {
		t.Errorf("output missing git_version: %s", res.Output)
	}
}
