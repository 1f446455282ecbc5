package execenv

import (
	"os"
	"testing"
)

func TestSanitizeForcesNonInteractive(t *testing.T) {
	env := Sanitize(nil)

	want := map[string]string{
		"CI":                            "true",
		"TERM":                          "dumb",
		"NO_COLOR":                      "1",
		"PYTHONUNBUFFERED":              "1",
		"PIP_NO_INPUT":                  "1",
		"PIP_DISABLE_PIP_VERSION_CHECK": "1",
		"NPM_CONFIG_YES":                "true",
		"DEBIAN_FRONTEND":               "noninteractive",
		"GIT_TERMINAL_PROMPT":           "0",
		"TF_INPUT":                      "0",
	}
	for k, v := range want {
		got, ok := Lookup(env, k)
		if !ok {
			t.Errorf("%s missing from sanitized env", k)
			continue
		}
		if got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestSanitizeOverridesAmbient(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("SOME_AMBIENT_VAR", "kept")

	env := Sanitize(nil)

	if got, _ := Lookup(env, "TERM"); got != "dumb" {
		t.Errorf("TERM = %q, want forced %q", got, "dumb")
	}
	if got, _ := Lookup(env, "SOME_AMBIENT_VAR"); got != "kept" {
		t.Errorf("ambient var not carried: %q", got)
	}

	// The ambient environment itself must be untouched.
	if os.Getenv("TERM") != "xterm-256color" {
		t.Error("Sanitize mutated the ambient environment")
	}
}

func TestSanitizeExtraWins(t *testing.T) {
	env := Sanitize(map[string]string{"TERM": "vt100", "PGPASSWORD": "secret"})

	if got, _ := Lookup(env, "TERM"); got != "vt100" {
		t.Errorf("extra override lost: TERM = %q", got)
	}
	if got, _ := Lookup(env, "PGPASSWORD"); got != "secret" {
		t.Errorf("extra var missing: %q", got)
	}
}

func TestSanitizeNoDuplicateKeys(t *testing.T) {
	t.Setenv("CI", "false")
	env := Sanitize(nil)

	count := 0
	for _, kv := range env {
		if len(kv) >= 3 && kv[:3] == "CI=" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("CI appears %d times, want 1", count)
	}
}
