package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/tools"
	"github.com/jkaninda/fundi/internal/workspace"
)

// StateFileName is the project-local progress file written by
// save_project_state and read back by read_project_state.
const StateFileName = ".project-state.md"

// ---- save_project_state ----

type saveStateTool struct {
	gate *safety.Gate
	ws   *workspace.Workspace
}

func (t *saveStateTool) Name() string { return "save_project_state" }
func (t *saveStateTool) Description() string {
	return "Save project progress to a " + StateFileName + " file: current phase, summary, completed work, and next steps."
}

func (t *saveStateTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":       map[string]any{"type": "string", "description": "Project directory. Defaults to '.'"},
			"phase":      map[string]any{"type": "string", "description": "Current project phase, e.g. 'setup', 'implementation'"},
			"summary":    map[string]any{"type": "string", "description": "Short free-text progress summary"},
			"completed":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Completed items"},
			"next_steps": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Upcoming items"},
		},
		"required": []string{"phase", "summary"},
	}
}

func (t *saveStateTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "phase"); err != nil {
		return err
	}
	if _, err := tools.RequireString(params, "summary"); err != nil {
		return err
	}
	if _, err := tools.OptionalStringSlice(params, "completed"); err != nil {
		return err
	}
	if _, err := tools.OptionalStringSlice(params, "next_steps"); err != nil {
		return err
	}
	_, err := tools.OptionalString(params, "path", ".")
	return err
}

type saveStatePayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

func (t *saveStateTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.OptionalString(params, "path", ".")
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)
	phase, err := tools.RequireString(params, "phase")
	if err != nil {
		return nil, err
	}
	summary, err := tools.RequireString(params, "summary")
	if err != nil {
		return nil, err
	}
	completed, err := tools.OptionalStringSlice(params, "completed")
	if err != nil {
		return nil, err
	}
	nextSteps, err := tools.OptionalStringSlice(params, "next_steps")
	if err != nil {
		return nil, err
	}

	if ok, msg := t.gate.CheckPath(path); !ok {
		return fail("%s", msg)
	}
	if info, statErr := os.Stat(path); statErr != nil || !info.IsDir() {
		return fail("directory does not exist: %s", path)
	}

	statePath := filepath.Join(path, StateFileName)
	if err := os.WriteFile(statePath, renderState(phase, summary, completed, nextSteps), 0o644); err != nil {
		return fail("failed to write project state: %v", err)
	}

	return tools.JSONResult(saveStatePayload{
		Success: true,
		Message: fmt.Sprintf("Project state saved to %s", StateFileName),
		Path:    statePath,
	}, true)
}

// renderState formats the state sections as Markdown.
func renderState(phase, summary string, completed, nextSteps []string) []byte {
	var b strings.Builder
	b.WriteString("# Project State\n\n")
	fmt.Fprintf(&b, "Updated: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "## Phase\n\n%s\n\n", phase)
	fmt.Fprintf(&b, "## Summary\n\n%s\n", summary)
	writeStateList(&b, "Completed", completed)
	writeStateList(&b, "Next Steps", nextSteps)
	return []byte(b.String())
}

func writeStateList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// ---- read_project_state ----

type readStateTool struct {
	gate *safety.Gate
	ws   *workspace.Workspace
}

func (t *readStateTool) Name() string { return "read_project_state" }
func (t *readStateTool) Description() string {
	return "Read the " + StateFileName + " progress file from a project directory."
}

func (t *readStateTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Project directory. Defaults to '.'"},
		},
	}
}

func (t *readStateTool) Validate(params map[string]any) error {
	_, err := tools.OptionalString(params, "path", ".")
	return err
}

type readStatePayload struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Path    string `json:"path"`
}

func (t *readStateTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.OptionalString(params, "path", ".")
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)

	if ok, msg := t.gate.CheckPath(path); !ok {
		return fail("%s", msg)
	}

	statePath := filepath.Join(path, StateFileName)
	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fail("No project state found at %s", statePath)
		}
		return fail("failed to read project state: %v", err)
	}

	return tools.JSONResult(readStatePayload{
		Success: true,
		Content: string(data),
		Path:    statePath,
	}, true)
}
