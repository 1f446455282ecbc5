package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jkaninda/fundi/internal/execenv"
	"github.com/jkaninda/fundi/internal/policy"
	"github.com/jkaninda/fundi/internal/supervisor"
)

// Timeout multipliers per family. Package installs and image pulls are
// network-bound; infrastructure applies can run for many minutes.
const (
	multiplierBase      = 1
	multiplierInterpret = 2
	multiplierInstall   = 3
	multiplierInfra     = 10
)

// manifestExempt lists npm subcommands that legitimately run in a directory
// without a package.json.
var manifestExempt = map[string]bool{"init": true, "create": true, "version": true}

var composeFiles = []string{
	"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml",
}

// Npm runs an npm subcommand. A bare "version" query is rewritten to
// "npm --version" so it cannot hang on update-check network calls.
func (r *Runner) Npm(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:       policy.FamilyNpm,
		multiplier:   multiplierInstall,
		precondition: requireManifest,
		build: func(command string, tokens []string) supervisor.Invocation {
			if tokens[0] == "version" && len(tokens) == 1 {
				return supervisor.Argv("npm", "--version")
			}
			return supervisor.ShellLine("npm " + command)
		},
	}, command, dir, stdin)
}

// Npx runs an npx package runner command. Scaffolding runners are exempt
// from the manifest precondition since they create the project.
func (r *Runner) Npx(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:     policy.FamilyNpx,
		multiplier: multiplierInstall,
		precondition: func(dir, token string) string {
			if strings.HasPrefix(token, "create-") || token == "degit" {
				return ""
			}
			return requireManifest(dir, "")
		},
		build: func(command string, tokens []string) supervisor.Invocation {
			return supervisor.ShellLine("npx " + command)
		},
	}, command, dir, stdin)
}

// Python runs a python-family command. Commands are tokenized shell-aware so
// quoted arguments survive, then invoked directly without a shell.
//
// pip commands are rewritten to the interpreter's module form
// ("python3 -m pip ...") so execution does not depend on a PATH-installed
// pip shim, and install/uninstall get a non-interactive flag appended
// unless the caller already passed one.
func (r *Runner) Python(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:        policy.FamilyPython,
		multiplier:    multiplierInterpret,
		shellTokenize: true,
		precondition: func(_, token string) string {
			if token != "pip" && token != "pip3" {
				return ""
			}
			tokens, _ := policy.ShellSplit(command)
			if len(tokens) < 2 || !policy.IsPipSubcommandAllowed(tokens[1]) {
				sub := ""
				if len(tokens) > 1 {
					sub = tokens[1]
				}
				return fmt.Sprintf("Command not allowed: pip %q. Allowed pip commands: %s",
					sub, strings.Join(policy.PipSubcommands(), ", "))
			}
			return ""
		},
		build: buildPython,
	}, command, dir, stdin)
}

func buildPython(command string, tokens []string) supervisor.Invocation {
	switch tokens[0] {
	case "pip", "pip3":
		args := append([]string{"-m", "pip"}, tokens[1:]...)
		if needsNoInput(tokens[1], tokens[2:]) {
			args = append(args, "--no-input")
		}
		return supervisor.Argv("python3", args...)
	default:
		return supervisor.Argv(tokens[0], tokens[1:]...)
	}
}

// needsNoInput reports whether a pip subcommand should get --no-input
// appended. Skipped when the caller already passed a non-interactive flag.
func needsNoInput(sub string, rest []string) bool {
	if sub != "install" && sub != "uninstall" {
		return false
	}
	for _, arg := range rest {
		if arg == "-y" || arg == "--yes" || arg == "--no-input" {
			return false
		}
	}
	return true
}

// Go runs a go toolchain subcommand.
func (r *Runner) Go(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:     policy.FamilyGo,
		multiplier: multiplierInterpret,
		build: func(command string, tokens []string) supervisor.Invocation {
			if tokens[0] == "version" && len(tokens) == 1 {
				return supervisor.Argv("go", "version")
			}
			return supervisor.ShellLine("go " + command)
		},
	}, command, dir, stdin)
}

// Shell runs one of the small allow-listed set of safe shell commands.
// The command is passed to the shell as-is, so pipes and redirects work.
func (r *Runner) Shell(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:     policy.FamilyShell,
		multiplier: multiplierBase,
		build: func(command string, tokens []string) supervisor.Invocation {
			return supervisor.ShellLine(command)
		},
	}, command, dir, stdin)
}

// Docker runs a docker CLI subcommand.
func (r *Runner) Docker(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:     policy.FamilyDocker,
		multiplier: multiplierInstall,
		build: func(command string, tokens []string) supervisor.Invocation {
			if tokens[0] == "version" && len(tokens) == 1 {
				return supervisor.Argv("docker", "--version")
			}
			return supervisor.ShellLine("docker " + command)
		},
	}, command, dir, stdin)
}

// Compose runs a docker compose subcommand. The modern plugin form is tried
// first; if docker reports the compose plugin is missing, the legacy
// standalone binary is used instead.
func (r *Runner) Compose(ctx context.Context, command, dir, stdin string) Result {
	spec := familySpec{
		family:     policy.FamilyCompose,
		multiplier: multiplierInstall,
		precondition: func(dir, token string) string {
			if token == "version" {
				return ""
			}
			for _, name := range composeFiles {
				if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
					return ""
				}
			}
			return "no compose file found in working directory"
		},
		build: func(command string, tokens []string) supervisor.Invocation {
			return supervisor.ShellLine("docker compose " + command)
		},
	}

	res := r.run(ctx, spec, command, dir, stdin)
	if res.Error != nil && strings.Contains(*res.Error, "is not a docker command") {
		return r.execute(ctx, spec, supervisor.ShellLine("docker-compose "+command), dir, stdin)
	}
	return res
}

// Terraform runs a terraform subcommand. Plans and applies can legitimately
// run for a long time, hence the large multiplier.
func (r *Runner) Terraform(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:     policy.FamilyTerraform,
		multiplier: multiplierInfra,
		build: func(command string, tokens []string) supervisor.Invocation {
			return supervisor.ShellLine("terraform " + command)
		},
	}, command, dir, stdin)
}

// Git runs a git subcommand.
func (r *Runner) Git(ctx context.Context, command, dir, stdin string) Result {
	return r.run(ctx, familySpec{
		family:     policy.FamilyGit,
		multiplier: multiplierBase,
		build: func(command string, tokens []string) supervisor.Invocation {
			if (tokens[0] == "version" || tokens[0] == "--version") && len(tokens) == 1 {
				return supervisor.Argv("git", "--version")
			}
			return supervisor.ShellLine("git " + command)
		},
	}, command, dir, stdin)
}

// Database runs a database client command for the given engine, either on
// the host or inside a running container.
func (r *Runner) Database(ctx context.Context, command, dbType, dir, container, stdin string) Result {
	const family = "database"

	engine, err := policy.ParseEngine(dbType)
	if err != nil {
		r.rejected(family, "bad_engine")
		return reject(command, dir, err.Error())
	}

	dir = r.ws.Resolve(dir)
	if ok, msg := r.gate.CheckPath(dir); !ok {
		r.rejected(family, "restricted_path")
		return reject(command, dir, fmt.Sprintf("Working directory blocked: %s", msg))
	}
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		r.rejected(family, "missing_directory")
		return reject(command, dir, fmt.Sprintf("working directory does not exist: %s", dir))
	}

	tokens, err := policy.ShellSplit(command)
	if err != nil {
		r.rejected(family, "bad_command")
		return reject(command, dir, fmt.Sprintf("invalid command: %v", err))
	}
	token := ""
	if len(tokens) > 0 {
		token = tokens[0]
	}
	if !policy.IsEngineBinaryAllowed(engine, token) {
		r.rejected(family, "not_allowed")
		return reject(command, dir, fmt.Sprintf("Command not allowed: %q. Allowed %s commands: %s",
			token, engine, strings.Join(policy.EngineBinaries(engine), ", ")))
	}

	inv := supervisor.ShellLine(command)
	if container != "" {
		if msg := r.checkContainerRunning(ctx, container); msg != "" {
			r.rejected(family, "container_not_running")
			return reject(command, dir, msg)
		}
		inv = containerExec(container, command, stdin != "")
	}

	res := r.execute(ctx, familySpec{family: "database", multiplier: multiplierInterpret}, inv, dir, stdin)
	res.DockerContainer = container
	return res
}

// checkContainerRunning verifies the named container appears in a filtered
// docker ps listing. Returns a rejection message, or "" when running.
func (r *Runner) checkContainerRunning(ctx context.Context, container string) string {
	out := r.exec.Run(ctx, supervisor.Request{
		Invocation: supervisor.Argv("docker", "ps", "--filter", "name="+container, "--format", "{{.Names}}"),
		Timeout:    r.exec.BaseTimeout(),
		Env:        execenv.Sanitize(nil),
	})
	if out.ExitCode != 0 {
		return fmt.Sprintf("failed to query docker for container %q: %s", container, strings.TrimSpace(out.Stderr))
	}
	for _, name := range strings.Fields(out.Stdout) {
		if name == container {
			return ""
		}
	}
	return fmt.Sprintf("container %q is not running", container)
}

// containerExec wraps a database command in a docker exec invocation.
// Stdin is attached interactively only when stdin text is present.
func containerExec(container, command string, interactive bool) supervisor.Invocation {
	args := []string{"exec"}
	if interactive {
		args = append(args, "-i")
	}
	args = append(args, container, "sh", "-c", command)
	return supervisor.Argv("docker", args...)
}

func requireManifest(dir, token string) string {
	if manifestExempt[token] {
		return ""
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		return "package.json not found in working directory"
	}
	return ""
}
