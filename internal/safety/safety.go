// Package safety implements the path and filename gate consulted before any
// file is touched or process is spawned. Every tool resolves user-supplied
// paths through this package first.
package safety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest file the file tools will read or write (10 MB).
const MaxFileSize = 10 << 20

// AllowedExtensions is the closed set of file extensions the file tools may
// create or modify. Extensionless files (Makefile, Dockerfile) are allowed.
var AllowedExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".js": true, ".ts": true,
	".jsx": true, ".tsx": true, ".py": true, ".html": true, ".css": true,
	".scss": true, ".sass": true, ".less": true, ".yml": true, ".yaml": true,
	".xml": true, ".csv": true, ".env": true, ".gitignore": true,
	".dockerfile": true, ".dockerignore": true, ".sql": true, ".sh": true,
	".bat": true, ".ps1": true, ".toml": true, ".ini": true, ".cfg": true,
	".conf": true, ".go": true, ".mod": true, ".sum": true, ".tf": true,
	".tfvars": true, ".lock": true,
}

// defaultRestrictedPaths are system locations no tool may operate under.
var defaultRestrictedPaths = []string{
	"/System", "/usr/bin", "/usr/sbin", "/bin", "/sbin",
	"/etc/passwd", "/etc/shadow", "/boot", "/proc", "/sys",
}

// Gate validates working directories and file paths against a restricted
// prefix list. The zero value is unusable; construct with New.
type Gate struct {
	restricted []string
}

// New creates a Gate with the given restricted path prefixes.
// An empty list falls back to the built-in system defaults.
func New(restricted []string) *Gate {
	if len(restricted) == 0 {
		restricted = defaultRestrictedPaths
	}
	return &Gate{restricted: restricted}
}

// CheckPath reports whether a path is safe to operate on. The path is
// normalized to absolute form before matching so that relative tricks
// ("../../etc/passwd") cannot bypass the prefix check. The returned reason
// names the restricted prefix that matched, for the caller's error message.
func (g *Gate) CheckPath(path string) (bool, string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Sprintf("invalid path: %v", err)
	}
	for _, restricted := range g.restricted {
		if abs == restricted || strings.HasPrefix(abs, restricted+string(filepath.Separator)) {
			return false, fmt.Sprintf("access to restricted path blocked: %s", restricted)
		}
	}
	return true, "path is safe"
}

// CheckFilename reports whether a bare filename (no directory component) is
// acceptable as a new project or file name.
func CheckFilename(name string) (bool, string) {
	if name == "" || strings.HasPrefix(name, ".") {
		return false, "invalid filename"
	}
	for _, bad := range []string{"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|"} {
		if strings.Contains(name, bad) {
			return false, "filename contains dangerous characters"
		}
	}
	return true, "filename is safe"
}

// Extension returns the lowercase extension of a filename, including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ExtensionAllowed reports whether a filename's extension is in the allowed
// set. Files without an extension are allowed.
func ExtensionAllowed(name string) bool {
	ext := Extension(name)
	if ext == "" {
		return true
	}
	return AllowedExtensions[ext]
}
