// Package workspace resolves the directory command tools operate in.
// Relative working-directory arguments from tool calls resolve against a
// single workspace root, so a client can pass "cwd": "api" and mean
// <root>/api regardless of where the server process was started.
//
// Default workspace: ~/.fundi/workspace (configurable via config or FUNDI_WORKSPACE env var).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default workspace location relative to user home directory.
const defaultRelativePath = ".fundi/workspace"

// Workspace anchors relative working directories at a fixed root.
// The zero value is not usable; construct with New or Default.
type Workspace struct {
	Root string
}

// New creates a Workspace rooted at the given path.
// It resolves ~ to the user's home directory and creates the root directory
// with appropriate permissions if it does not exist.
func New(root string) (*Workspace, error) {
	resolved, err := resolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", root, err)
	}

	if err := os.MkdirAll(resolved, 0750); err != nil {
		return nil, fmt.Errorf("creating workspace root: %w", err)
	}

	return &Workspace{Root: resolved}, nil
}

// Default creates a Workspace at ~/.fundi/workspace.
func Default() (*Workspace, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}
	return New(filepath.Join(home, defaultRelativePath))
}

// Resolve maps a working-directory argument to a concrete path. Empty or
// "." means the workspace root, relative paths join onto the root, and
// absolute paths pass through untouched. A nil receiver resolves against
// the process working directory instead, which keeps the anchoring
// optional for callers that have no workspace configured.
func (w *Workspace) Resolve(path string) string {
	if w == nil {
		if path == "" {
			return "."
		}
		return path
	}
	if path == "" || path == "." {
		return w.Root
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.Root, path)
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}
