package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "workspace")

	ws, err := New(root)
	if err != nil {
		t.Fatalf("New(%q): %v", root, err)
	}
	if ws.Root != root {
		t.Errorf("Root = %q, want %q", ws.Root, root)
	}

	// Root directory should exist.
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root dir not created: %v", err)
	}
}

func TestNewExistingRoot(t *testing.T) {
	tmp := t.TempDir()

	ws, err := New(tmp)
	if err != nil {
		t.Fatalf("New on existing dir: %v", err)
	}
	if ws.Root != tmp {
		t.Errorf("Root = %q, want %q", ws.Root, tmp)
	}
}

func TestResolve(t *testing.T) {
	tmp := t.TempDir()
	ws, err := New(tmp)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty means root", "", tmp},
		{"dot means root", ".", tmp},
		{"relative joins root", "api", filepath.Join(tmp, "api")},
		{"nested relative", "api/src", filepath.Join(tmp, "api", "src")},
		{"absolute passes through", "/opt/project", "/opt/project"},
		{"absolute is cleaned", "/opt//project/.", "/opt/project"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ws.Resolve(tc.path); got != tc.want {
				t.Errorf("Resolve(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestResolveNilWorkspace(t *testing.T) {
	var ws *Workspace

	if got := ws.Resolve(""); got != "." {
		t.Errorf("nil Resolve(\"\") = %q, want \".\"", got)
	}
	if got := ws.Resolve("sub/dir"); got != "sub/dir" {
		t.Errorf("nil Resolve passthrough = %q, want %q", got, "sub/dir")
	}
}
