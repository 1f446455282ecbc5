package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jkaninda/fundi/internal/execenv"
	"github.com/jkaninda/fundi/internal/supervisor"
)

// gitProbeTimeout bounds the "is git installed" check.
const gitProbeTimeout = 10 * time.Second

// GitInitResult is the record returned by repository initialization.
type GitInitResult struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message,omitempty"`
	Error            *string `json:"error,omitempty"`
	Path             string  `json:"path"`
	GitVersion       string  `json:"git_version,omitempty"`
	GitignoreCreated bool    `json:"gitignore_created"`
}

// defaultGitignore covers the dependency, build, IDE, and OS noise common
// to the project templates this server scaffolds.
const defaultGitignore = `# Dependencies
node_modules/
venv/
env/
.env

# Build outputs
dist/
build/
*.egg-info/

# IDE files
.vscode/
.idea/
*.swp
*.swo

# OS files
.DS_Store
Thumbs.db

# Logs
*.log
logs/
`

// GitInit initializes a git repository at path and seeds a .gitignore when
// none exists. Git availability is probed first with a short timeout so a
// missing binary fails fast instead of burning the full command timeout.
func (r *Runner) GitInit(ctx context.Context, path string) GitInitResult {
	path = r.ws.Resolve(path)
	if ok, msg := r.gate.CheckPath(path); !ok {
		return gitInitError(path, fmt.Sprintf("Working directory blocked: %s", msg))
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return gitInitError(path, fmt.Sprintf("directory does not exist: %s", path))
	}

	probe := r.exec.Run(ctx, supervisor.Request{
		Invocation: supervisor.Argv("git", "--version"),
		Timeout:    gitProbeTimeout,
		Env:        execenv.Sanitize(nil),
	})
	if probe.ExitCode != 0 {
		return gitInitError(path, "Git is not installed or not available")
	}

	out := r.exec.Run(ctx, supervisor.Request{
		Invocation: supervisor.Argv("git", "init"),
		Dir:        path,
		Timeout:    r.exec.BaseTimeout(),
		Env:        execenv.Sanitize(nil),
	})
	if out.TimedOut {
		return gitInitError(path, "Git initialization timed out")
	}
	if out.ExitCode != 0 {
		return gitInitError(path, fmt.Sprintf("Failed to initialize Git repository: %s", strings.TrimSpace(out.Stderr)))
	}

	created := false
	gitignorePath := filepath.Join(path, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte(defaultGitignore), 0o644); err != nil {
			return gitInitError(path, fmt.Sprintf("Failed to create .gitignore: %v", err))
		}
		created = true
	}

	r.logger.Info("git repository initialized", "path", path, "gitignore_created", created)
	return GitInitResult{
		Success:          true,
		Message:          "Git repository initialized successfully",
		Path:             path,
		GitVersion:       strings.TrimSpace(probe.Stdout),
		GitignoreCreated: created,
	}
}

func gitInitError(path, msg string) GitInitResult {
	return GitInitResult{Error: &msg, Path: path}
}
