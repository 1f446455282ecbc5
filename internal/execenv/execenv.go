// Package execenv builds the sanitized environment passed to every spawned
// process. The ambient environment is copied, then non-interactive and
// CI-mode flags are forced so child tools never block waiting for a TTY.
package execenv

import (
	"os"
	"strings"
)

// forced are the variables overridden in every child environment.
// Order matters only for readability; later entries win over ambient values.
var forced = map[string]string{
	// CI detection. Most toolchains skip prompts and progress bars under CI.
	"CI": "true",

	// Terminal identity: no color, no cursor tricks, no pagers.
	"TERM":     "dumb",
	"NO_COLOR": "1",

	// Python / pip.
	"PYTHONUNBUFFERED":              "1",
	"PIP_NO_INPUT":                  "1",
	"PIP_DISABLE_PIP_VERSION_CHECK": "1",

	// npm.
	"NPM_CONFIG_YES":             "true",
	"NPM_CONFIG_FUND":            "false",
	"NPM_CONFIG_UPDATE_NOTIFIER": "false",

	// apt and friends inside docker builds.
	"DEBIAN_FRONTEND": "noninteractive",

	// git must never prompt for credentials.
	"GIT_TERMINAL_PROMPT": "0",

	// docker compose.
	"COMPOSE_INTERACTIVE_NO_CLI": "1",

	// terraform.
	"TF_IN_AUTOMATION": "1",
	"TF_INPUT":         "0",
}

// Sanitize returns a copy of the ambient process environment with the forced
// non-interactive variables applied. The ambient environment itself is never
// mutated. Extra entries override both ambient and forced values.
func Sanitize(extra map[string]string) []string {
	ambient := os.Environ()
	merged := make(map[string]string, len(ambient)+len(forced)+len(extra))
	order := make([]string, 0, len(ambient)+len(forced)+len(extra))

	put := func(k, v string) {
		if _, seen := merged[k]; !seen {
			order = append(order, k)
		}
		merged[k] = v
	}

	for _, kv := range ambient {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		put(k, v)
	}
	for k, v := range forced {
		put(k, v)
	}
	for k, v := range extra {
		put(k, v)
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// Lookup finds a variable in a sanitized environment slice by key.
func Lookup(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):], true
		}
	}
	return "", false
}
