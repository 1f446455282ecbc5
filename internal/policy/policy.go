// Package policy holds the static command allowlists enforced before any
// process is spawned. Each command family maps a leading token to
// allowed/denied; everything absent from a family's set is denied.
//
// The allowlist validates only the leading token of a shell-interpreted
// string. Embedded shell operators inside an otherwise-allowed command are
// intentionally not rejected: the trust boundary is a cooperating agent,
// not a hostile caller.
package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Family identifies a command family. Callers select the family explicitly
// through the tool they invoke; it is never inferred from command text.
type Family string

const (
	FamilyNpm       Family = "npm"
	FamilyNpx       Family = "npx"
	FamilyPython    Family = "python"
	FamilyGo        Family = "go"
	FamilyShell     Family = "shell"
	FamilyDocker    Family = "docker"
	FamilyCompose   Family = "docker-compose"
	FamilyTerraform Family = "terraform"
	FamilyGit       Family = "git"
)

// DatabaseEngine selects the allowed binary set for the database family.
type DatabaseEngine string

const (
	EnginePostgres DatabaseEngine = "postgresql"
	EngineMySQL    DatabaseEngine = "mysql"
	EngineSQLite   DatabaseEngine = "sqlite"
	EngineMongoDB  DatabaseEngine = "mongodb"
)

var familyTokens = map[Family]map[string]bool{
	FamilyNpm: set(
		"install", "i", "update", "run", "start", "test", "build",
		"lint", "audit", "list", "ls", "outdated", "version",
		"init", "create", "config", "info", "search", "pack",
		"publish", "unpublish", "deprecate", "docs", "repo",
	),
	FamilyNpx: set(
		"create-react-app", "create-next-app", "create-vite", "create-vue",
		"degit", "tsc", "eslint", "prettier", "jest", "vitest", "vite",
		"tailwindcss", "nodemon", "serve", "http-server", "json-server",
	),
	FamilyPython: set(
		"pip", "python", "python3", "pytest", "black", "flake8",
		"mypy", "pylint", "isort", "coverage",
	),
	FamilyGo: set(
		"build", "run", "test", "mod", "get", "install", "fmt", "vet",
		"clean", "version", "env", "list", "doc", "generate", "work", "tool",
	),
	FamilyShell: set(
		"echo", "ls", "pwd", "whoami", "date", "cat", "head", "tail",
		"wc", "grep", "find", "which", "type", "env", "dir",
	),
	FamilyDocker: set(
		"build", "run", "ps", "images", "pull", "push", "stop", "start",
		"restart", "rm", "rmi", "logs", "exec", "inspect", "network",
		"volume", "system", "compose", "version", "info", "tag", "cp", "stats",
	),
	FamilyCompose: set(
		"up", "down", "build", "ps", "logs", "restart", "stop", "start",
		"pull", "exec", "run", "config", "version",
	),
	FamilyTerraform: set(
		"init", "plan", "apply", "destroy", "validate", "fmt", "show",
		"output", "state", "workspace", "version", "providers", "refresh",
		"import", "graph",
	),
	FamilyGit: set(
		"init", "version", "--version", "status", "log", "add", "commit",
		"diff", "branch", "checkout", "remote",
	),
}

// pipSubcommands is the nested allowlist applied to "pip <subcommand> ...".
var pipSubcommands = set("install", "uninstall", "list", "show", "freeze", "check")

// engineBinaries maps each database engine to its permitted client binaries.
var engineBinaries = map[DatabaseEngine]map[string]bool{
	EnginePostgres: set("psql", "pg_dump", "pg_restore", "createdb", "dropdb"),
	EngineMySQL:    set("mysql", "mysqldump", "mysqladmin"),
	EngineSQLite:   set("sqlite3"),
	EngineMongoDB:  set("mongosh", "mongo", "mongodump", "mongorestore", "mongoexport", "mongoimport"),
}

// IsAllowed reports whether the leading token is permitted for the family.
// The empty token is never allowed.
func IsAllowed(family Family, token string) bool {
	if token == "" {
		return false
	}
	return familyTokens[family][token]
}

// Allowed returns the family's permitted tokens, sorted for deterministic
// rejection messages.
func Allowed(family Family) []string {
	tokens := familyTokens[family]
	out := make([]string, 0, len(tokens))
	for t := range tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsPipSubcommandAllowed reports whether a "pip <subcommand>" is permitted.
func IsPipSubcommandAllowed(sub string) bool {
	if sub == "" {
		return false
	}
	return pipSubcommands[sub]
}

// PipSubcommands returns the nested pip allowlist, sorted.
func PipSubcommands() []string {
	out := make([]string, 0, len(pipSubcommands))
	for s := range pipSubcommands {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ParseEngine validates a db_type parameter against the supported engines.
func ParseEngine(dbType string) (DatabaseEngine, error) {
	engine := DatabaseEngine(strings.ToLower(dbType))
	if _, ok := engineBinaries[engine]; !ok {
		return "", fmt.Errorf("unsupported db_type %q; supported: %s",
			dbType, strings.Join(Engines(), ", "))
	}
	return engine, nil
}

// IsEngineBinaryAllowed reports whether the leading token is a permitted
// client binary for the engine.
func IsEngineBinaryAllowed(engine DatabaseEngine, token string) bool {
	if token == "" {
		return false
	}
	return engineBinaries[engine][token]
}

// EngineBinaries returns the engine's permitted binaries, sorted.
func EngineBinaries(engine DatabaseEngine) []string {
	out := make([]string, 0, len(engineBinaries[engine]))
	for b := range engineBinaries[engine] {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Engines returns the supported database engine names, sorted.
func Engines() []string {
	out := make([]string, 0, len(engineBinaries))
	for e := range engineBinaries {
		out = append(out, string(e))
	}
	sort.Strings(out)
	return out
}

// LeadingToken returns the first whitespace-delimited token of a command.
func LeadingToken(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func set(tokens ...string) map[string]bool {
	m := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return m
}
