// Package project implements project scaffolding and inspection tools:
// template instantiation, free-form structure creation, project type
// detection, and template listing.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/tools"
	"github.com/jkaninda/fundi/internal/workspace"
)

// Register adds all project tools to the registry. Relative paths are
// resolved against ws, matching the command tools.
func Register(reg *tools.Registry, gate *safety.Gate, ws *workspace.Workspace, logger *slog.Logger) {
	reg.Register(&templateTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&structureTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&infoTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&listTemplatesTool{})
	reg.Register(&saveStateTool{gate: gate, ws: ws})
	reg.Register(&readStateTool{gate: gate, ws: ws})
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(format string, args ...any) (*tools.Result, error) {
	return tools.JSONResult(failure{Error: fmt.Sprintf(format, args...)}, false)
}

// configMarkers maps manifest files to the project type they indicate.
var configMarkers = []struct {
	file string
	kind string
}{
	{"package.json", "node"},
	{"requirements.txt", "python"},
	{"Pipfile", "python"},
	{"pyproject.toml", "python"},
	{"Cargo.toml", "rust"},
	{"pom.xml", "java"},
	{"build.gradle", "java"},
	{"composer.json", "php"},
	{"Gemfile", "ruby"},
	{"go.mod", "go"},
}

// skippedDirs are dependency and build directories excluded from project
// statistics walks.
var skippedDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true, ".venv": true,
	"venv": true, "env": true, "build": true, "dist": true, ".next": true,
	"target": true,
}

// ---- create_project_from_template ----

type templateTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *templateTool) Name() string { return "create_project_from_template" }
func (t *templateTool) Description() string {
	return fmt.Sprintf("Create a new project from a predefined template. Available templates: %s",
		strings.Join(TemplateNames(), ", "))
}

func (t *templateTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template_name": map[string]any{"type": "string", "enum": TemplateNames(), "description": "Template to instantiate"},
			"project_name":  map[string]any{"type": "string", "description": "Name of the new project directory"},
			"project_path":  map[string]any{"type": "string", "description": "Directory to create the project in. Defaults to '.'"},
		},
		"required": []string{"template_name", "project_name"},
	}
}

func (t *templateTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "template_name"); err != nil {
		return err
	}
	if _, err := tools.RequireString(params, "project_name"); err != nil {
		return err
	}
	_, err := tools.OptionalString(params, "project_path", ".")
	return err
}

type templatePayload struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Template     string   `json:"template"`
	ProjectPath  string   `json:"project_path"`
	FilesCreated []string `json:"files_created"`
	NextSteps    string   `json:"next_steps"`
}

func (t *templateTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	templateName, err := tools.RequireString(params, "template_name")
	if err != nil {
		return nil, err
	}
	projectName, err := tools.RequireString(params, "project_name")
	if err != nil {
		return nil, err
	}
	projectPath, err := tools.OptionalString(params, "project_path", ".")
	if err != nil {
		return nil, err
	}
	projectPath = t.ws.Resolve(projectPath)

	if ok, msg := t.gate.CheckPath(projectPath); !ok {
		return fail("Project path blocked: %s", msg)
	}
	if ok, msg := safety.CheckFilename(projectName); !ok {
		return fail("Invalid project name: %s", msg)
	}
	tmpl, ok := templates[templateName]
	if !ok {
		return tools.JSONResult(map[string]any{
			"success":             false,
			"error":               fmt.Sprintf("Template not found: %s", templateName),
			"available_templates": TemplateNames(),
		}, false)
	}

	root := filepath.Join(projectPath, projectName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fail("Failed to create project directory: %v", err)
	}

	created := make([]string, 0, len(tmpl.Files))
	names := make([]string, 0, len(tmpl.Files))
	for name := range tmpl.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		target := filepath.Join(root, name)
		if dir := filepath.Dir(target); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fail("Failed to create %s: %v", name, err)
			}
		}
		if err := os.WriteFile(target, []byte(tmpl.Files[name]), 0o644); err != nil {
			return fail("Failed to create %s: %v", name, err)
		}
		created = append(created, name)
	}

	t.logger.Info("project created from template", "template", templateName, "path", root)
	return tools.JSONResult(templatePayload{
		Success:      true,
		Message:      fmt.Sprintf("Project %q created successfully", projectName),
		Template:     templateName,
		ProjectPath:  root,
		FilesCreated: created,
		NextSteps:    fmt.Sprintf("1. cd %s\n2. Follow README.md instructions", projectName),
	}, true)
}

// ---- create_project_structure ----

type structureTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *structureTool) Name() string { return "create_project_structure" }
func (t *structureTool) Description() string {
	return "Create a custom project layout from a nested object: objects become directories, strings become file contents"
}

func (t *structureTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"project_name": map[string]any{"type": "string", "description": "Name of the project directory"},
			"structure":    map[string]any{"type": "object", "description": "Nested layout: {\"src\": {\"main.go\": \"package main\"}, \"README.md\": \"# Hello\"}"},
			"base_path":    map[string]any{"type": "string", "description": "Base directory. Defaults to '.'"},
		},
		"required": []string{"project_name", "structure"},
	}
}

func (t *structureTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "project_name"); err != nil {
		return err
	}
	if _, ok := params["structure"].(map[string]any); !ok {
		return fmt.Errorf("parameter structure must be an object")
	}
	_, err := tools.OptionalString(params, "base_path", ".")
	return err
}

type structurePayload struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	ProjectPath  string   `json:"project_path"`
	ItemsCreated []string `json:"items_created"`
	TotalItems   int      `json:"total_items"`
}

func (t *structureTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	projectName, err := tools.RequireString(params, "project_name")
	if err != nil {
		return nil, err
	}
	structure, _ := params["structure"].(map[string]any)
	basePath, err := tools.OptionalString(params, "base_path", ".")
	if err != nil {
		return nil, err
	}
	basePath = t.ws.Resolve(basePath)

	if ok, msg := t.gate.CheckPath(basePath); !ok {
		return fail("Base path blocked: %s", msg)
	}
	if ok, msg := safety.CheckFilename(projectName); !ok {
		return fail("Invalid project name: %s", msg)
	}

	root := filepath.Join(basePath, projectName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fail("Failed to create project structure: %v", err)
	}

	created := []string{"[dir] " + root}
	if err := createStructure(root, structure, &created); err != nil {
		return fail("Failed to create project structure: %v", err)
	}

	t.logger.Info("project structure created", "path", root, "items", len(created))
	return tools.JSONResult(structurePayload{
		Success:      true,
		Message:      fmt.Sprintf("Project structure created successfully: %s", projectName),
		ProjectPath:  root,
		ItemsCreated: created,
		TotalItems:   len(created),
	}, true)
}

// createStructure walks the nested layout depth-first in sorted order so
// output is deterministic. Files with disallowed extensions are skipped,
// not errors.
func createStructure(root string, structure map[string]any, created *[]string) error {
	names := make([]string, 0, len(structure))
	for name := range structure {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := filepath.Join(root, name)
		switch content := structure[name].(type) {
		case map[string]any:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			*created = append(*created, "[dir] "+target)
			if err := createStructure(target, content, created); err != nil {
				return err
			}
		case string:
			if ext := safety.Extension(name); ext != "" && !safety.ExtensionAllowed(name) {
				continue
			}
			if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
				return err
			}
			*created = append(*created, "[file] "+target)
		default:
			return fmt.Errorf("entry %q must be an object (directory) or string (file content), got %T", name, content)
		}
	}
	return nil
}

// ---- get_project_info ----

type infoTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *infoTool) Name() string { return "get_project_info" }
func (t *infoTool) Description() string {
	return "Inspect a project directory: detected type, manifest details, git presence, and file statistics"
}

func (t *infoTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Project directory. Defaults to '.'"},
		},
	}
}

func (t *infoTool) Validate(params map[string]any) error {
	_, err := tools.OptionalString(params, "path", ".")
	return err
}

// ProjectInfo describes a detected project.
type ProjectInfo struct {
	Path          string                    `json:"path"`
	Name          string                    `json:"name"`
	Type          string                    `json:"type"`
	DetectedTypes []string                  `json:"detected_types"`
	ConfigFiles   map[string]map[string]any `json:"config_files"`
	GitRepository bool                      `json:"git_repository"`
	Stats         ProjectStats              `json:"stats"`
}

// ProjectStats summarizes a project tree, excluding dependency directories.
type ProjectStats struct {
	TotalFiles       int            `json:"total_files"`
	TotalDirectories int            `json:"total_directories"`
	FileExtensions   map[string]int `json:"file_extensions"`
}

type infoPayload struct {
	Success     bool        `json:"success"`
	ProjectInfo ProjectInfo `json:"project_info"`
}

func (t *infoTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.OptionalString(params, "path", ".")
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)
	if ok, msg := t.gate.CheckPath(path); !ok {
		return fail("Path blocked for security: %s", msg)
	}
	if info, statErr := os.Stat(path); statErr != nil || !info.IsDir() {
		return fail("Directory does not exist")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fail("Failed to get project info: %v", err)
	}

	pi := ProjectInfo{
		Path:        abs,
		Name:        filepath.Base(abs),
		Type:        "unknown",
		ConfigFiles: map[string]map[string]any{},
	}

	for _, marker := range configMarkers {
		markerPath := filepath.Join(path, marker.file)
		if _, statErr := os.Stat(markerPath); statErr != nil {
			continue
		}
		pi.DetectedTypes = append(pi.DetectedTypes, marker.kind)
		pi.ConfigFiles[marker.file] = describeConfig(marker.file, markerPath)
	}
	if len(pi.DetectedTypes) > 0 {
		pi.Type = pi.DetectedTypes[0]
	}
	if pi.DetectedTypes == nil {
		pi.DetectedTypes = []string{}
	}

	if _, statErr := os.Stat(filepath.Join(path, ".git")); statErr == nil {
		pi.GitRepository = true
	}
	pi.Stats = walkStats(path)

	return tools.JSONResult(infoPayload{Success: true, ProjectInfo: pi}, true)
}

// describeConfig extracts summary details from known manifest files.
// Unparseable manifests are reported as present only.
func describeConfig(name, path string) map[string]any {
	switch name {
	case "package.json":
		data, err := os.ReadFile(path)
		if err != nil {
			break
		}
		var pkg struct {
			Name        string            `json:"name"`
			Version     string            `json:"version"`
			Description string            `json:"description"`
			Scripts     map[string]string `json:"scripts"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil {
			break
		}
		scripts := make([]string, 0, len(pkg.Scripts))
		for s := range pkg.Scripts {
			scripts = append(scripts, s)
		}
		sort.Strings(scripts)
		return map[string]any{
			"name":        pkg.Name,
			"version":     pkg.Version,
			"description": pkg.Description,
			"scripts":     scripts,
		}
	case "requirements.txt":
		data, err := os.ReadFile(path)
		if err != nil {
			break
		}
		var packages []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			packages = append(packages, line)
		}
		preview := packages
		if len(preview) > 10 {
			preview = preview[:10]
		}
		return map[string]any{
			"dependencies": len(packages),
			"packages":     preview,
		}
	}
	return map[string]any{"exists": true}
}

// walkStats counts files and directories, tallying the ten most common
// extensions.
func walkStats(root string) ProjectStats {
	stats := ProjectStats{FileExtensions: map[string]int{}}
	extCounts := map[string]int{}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if path != root {
				stats.TotalDirectories++
			}
			return nil
		}
		stats.TotalFiles++
		if ext := safety.Extension(d.Name()); ext != "" {
			extCounts[ext]++
		}
		return nil
	})

	type extCount struct {
		ext string
		n   int
	}
	counts := make([]extCount, 0, len(extCounts))
	for ext, n := range extCounts {
		counts = append(counts, extCount{ext, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].n != counts[j].n {
			return counts[i].n > counts[j].n
		}
		return counts[i].ext < counts[j].ext
	})
	if len(counts) > 10 {
		counts = counts[:10]
	}
	for _, c := range counts {
		stats.FileExtensions[c.ext] = c.n
	}
	return stats
}

// ---- list_available_templates ----

type listTemplatesTool struct{}

func (t *listTemplatesTool) Name() string        { return "list_available_templates" }
func (t *listTemplatesTool) Description() string { return "List all available project templates" }

func (t *listTemplatesTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *listTemplatesTool) Validate(map[string]any) error { return nil }

type templateSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	FileCount   int    `json:"file_count"`
}

type listTemplatesPayload struct {
	Success    bool              `json:"success"`
	Templates  []templateSummary `json:"templates"`
	TotalCount int               `json:"total_count"`
}

func (t *listTemplatesTool) Execute(context.Context, map[string]any) (*tools.Result, error) {
	summaries := make([]templateSummary, 0, len(templates))
	for _, name := range TemplateNames() {
		tmpl := templates[name]
		summaries = append(summaries, templateSummary{
			Name:        name,
			DisplayName: tmpl.DisplayName,
			Description: tmpl.Description,
			FileCount:   len(tmpl.Files),
		})
	}
	return tools.JSONResult(listTemplatesPayload{
		Success:    true,
		Templates:  summaries,
		TotalCount: len(summaries),
	}, true)
}
