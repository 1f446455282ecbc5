// Package command exposes the supervised command façades as tools.
// Each family gets its own tool so the family is always chosen explicitly
// by the caller, never inferred from command text.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/jkaninda/fundi/internal/policy"
	"github.com/jkaninda/fundi/internal/runner"
	"github.com/jkaninda/fundi/internal/tools"
)

// execFunc adapts one runner façade method.
type execFunc func(ctx context.Context, command, cwd, input string) runner.Result

// familyTool is the generic tool wrapper shared by every command family.
type familyTool struct {
	name        string
	description string
	exec        execFunc
}

func (t *familyTool) Name() string        { return t.name }
func (t *familyTool) Description() string { return t.description }

func (t *familyTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "Command to run, without the family binary prefix where one applies"},
			"cwd":     map[string]any{"type": "string", "description": "Working directory. Relative paths resolve against the workspace root."},
			"input":   map[string]any{"type": "string", "description": "Optional text piped to the command's stdin"},
		},
		"required": []string{"command"},
	}
}

func (t *familyTool) Validate(params map[string]any) error {
	_, err := tools.RequireString(params, "command")
	return err
}

func (t *familyTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	command, err := tools.RequireString(params, "command")
	if err != nil {
		return nil, err
	}
	cwd, err := tools.OptionalString(params, "cwd", ".")
	if err != nil {
		return nil, err
	}
	input, err := tools.OptionalString(params, "input", "")
	if err != nil {
		return nil, err
	}

	res := t.exec(ctx, command, cwd, input)
	return tools.JSONResult(res, res.Success)
}

// Register adds every command-family tool to the registry.
func Register(reg *tools.Registry, r *runner.Runner) {
	families := []struct {
		name, description string
		exec              execFunc
	}{
		{
			"run_npm_command",
			fmt.Sprintf("Run an npm command in a project directory. Allowed subcommands: %s",
				strings.Join(policy.Allowed(policy.FamilyNpm), ", ")),
			r.Npm,
		},
		{
			"run_npx_command",
			fmt.Sprintf("Run an npx package runner command. Allowed runners: %s",
				strings.Join(policy.Allowed(policy.FamilyNpx), ", ")),
			r.Npx,
		},
		{
			"run_python_command",
			fmt.Sprintf("Run a python or pip command. Allowed leading tokens: %s. pip additionally restricts subcommands to: %s",
				strings.Join(policy.Allowed(policy.FamilyPython), ", "),
				strings.Join(policy.PipSubcommands(), ", ")),
			r.Python,
		},
		{
			"run_go_command",
			fmt.Sprintf("Run a go toolchain command. Allowed subcommands: %s",
				strings.Join(policy.Allowed(policy.FamilyGo), ", ")),
			r.Go,
		},
		{
			"run_shell_command",
			fmt.Sprintf("Run a safe read-only shell command. Allowed commands: %s",
				strings.Join(policy.Allowed(policy.FamilyShell), ", ")),
			r.Shell,
		},
		{
			"run_docker_command",
			fmt.Sprintf("Run a docker CLI command. Allowed subcommands: %s",
				strings.Join(policy.Allowed(policy.FamilyDocker), ", ")),
			r.Docker,
		},
		{
			"run_docker_compose",
			fmt.Sprintf("Run a docker compose command; falls back to the legacy docker-compose binary automatically. Allowed subcommands: %s",
				strings.Join(policy.Allowed(policy.FamilyCompose), ", ")),
			r.Compose,
		},
		{
			"run_terraform_command",
			fmt.Sprintf("Run a terraform command. Allowed subcommands: %s",
				strings.Join(policy.Allowed(policy.FamilyTerraform), ", ")),
			r.Terraform,
		},
		{
			"run_git_command",
			fmt.Sprintf("Run a git command. Allowed subcommands: %s",
				strings.Join(policy.Allowed(policy.FamilyGit), ", ")),
			r.Git,
		},
	}

	for _, f := range families {
		reg.Register(&familyTool{name: f.name, description: f.description, exec: f.exec})
	}
	reg.Register(&databaseTool{runner: r})
	reg.Register(&gitInitTool{runner: r})
}

// ---- database tool ----

// databaseTool runs database client commands, optionally inside a running
// container.
type databaseTool struct {
	runner *runner.Runner
}

func (t *databaseTool) Name() string { return "run_database_command" }
func (t *databaseTool) Description() string {
	return fmt.Sprintf("Run a database client command for a given engine (%s), on the host or inside a running docker container",
		strings.Join(policy.Engines(), ", "))
}

func (t *databaseTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":          map[string]any{"type": "string", "description": "Database client command, e.g. \"psql -U dev -c 'select 1'\""},
			"db_type":          map[string]any{"type": "string", "enum": policy.Engines(), "description": "Database engine selecting the allowed client binaries"},
			"cwd":              map[string]any{"type": "string", "description": "Working directory. Relative paths resolve against the workspace root."},
			"docker_container": map[string]any{"type": "string", "description": "Optional name of a running container to execute inside"},
			"input":            map[string]any{"type": "string", "description": "Optional text piped to the command's stdin"},
		},
		"required": []string{"command", "db_type"},
	}
}

func (t *databaseTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "command"); err != nil {
		return err
	}
	dbType, err := tools.RequireString(params, "db_type")
	if err != nil {
		return err
	}
	_, err = policy.ParseEngine(dbType)
	return err
}

func (t *databaseTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	command, err := tools.RequireString(params, "command")
	if err != nil {
		return nil, err
	}
	dbType, err := tools.RequireString(params, "db_type")
	if err != nil {
		return nil, err
	}
	cwd, err := tools.OptionalString(params, "cwd", ".")
	if err != nil {
		return nil, err
	}
	container, err := tools.OptionalString(params, "docker_container", "")
	if err != nil {
		return nil, err
	}
	input, err := tools.OptionalString(params, "input", "")
	if err != nil {
		return nil, err
	}

	res := t.runner.Database(ctx, command, dbType, cwd, container, input)
	return tools.JSONResult(res, res.Success)
}

// ---- git init tool ----

type gitInitTool struct {
	runner *runner.Runner
}

func (t *gitInitTool) Name() string { return "initialize_git_repository" }
func (t *gitInitTool) Description() string {
	return "Initialize a git repository in a directory and seed a default .gitignore when none exists"
}

func (t *gitInitTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory to initialize. Relative paths resolve against the workspace root."},
		},
	}
}

func (t *gitInitTool) Validate(params map[string]any) error {
	_, err := tools.OptionalString(params, "path", ".")
	return err
}

func (t *gitInitTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.OptionalString(params, "path", ".")
	if err != nil {
		return nil, err
	}
	res := t.runner.GitInit(ctx, path)
	return tools.JSONResult(res, res.Success)
}
