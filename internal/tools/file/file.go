// Package file implements workspace file tools: create, read, list, copy,
// and in-place search/replace. Every path is checked against the safety
// gate before any I/O occurs, and writes are additionally restricted by a
// file extension allowlist and a size cap.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/tools"
	"github.com/jkaninda/fundi/internal/workspace"
)

// Register adds all file tools to the registry. Relative paths are
// resolved against ws so file tools and command tools agree on where
// the workspace is, regardless of the process working directory.
func Register(reg *tools.Registry, gate *safety.Gate, ws *workspace.Workspace, logger *slog.Logger) {
	reg.Register(&createTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&readTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&mkdirTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&listTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&copyTool{gate: gate, ws: ws, logger: logger})
	reg.Register(&replaceTool{gate: gate, ws: ws, logger: logger})
}

// failure is the shared error payload for file tools.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(format string, args ...any) (*tools.Result, error) {
	return tools.JSONResult(failure{Error: fmt.Sprintf(format, args...)}, false)
}

// checkWritable applies the gate, extension allowlist, and non-empty check
// shared by the writing tools.
func checkWritable(gate *safety.Gate, path string) string {
	if ok, msg := gate.CheckPath(path); !ok {
		return fmt.Sprintf("Path blocked for security: %s", msg)
	}
	if ext := safety.Extension(path); ext != "" && !safety.ExtensionAllowed(path) {
		return fmt.Sprintf("File extension not allowed: %s", ext)
	}
	return ""
}

// ---- create_file ----

type createTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *createTool) Name() string { return "create_file" }
func (t *createTool) Description() string {
	return "Create a text file with the given content, creating parent directories as needed"
}

func (t *createTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "File path to create"},
			"content":   map[string]any{"type": "string", "description": "Content to write"},
			"overwrite": map[string]any{"type": "boolean", "description": "Replace an existing file. Defaults to false"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *createTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "path"); err != nil {
		return err
	}
	if _, ok := params["content"]; !ok {
		return fmt.Errorf("missing required parameter: content")
	}
	if _, ok := params["content"].(string); !ok {
		return fmt.Errorf("parameter content must be a string, got %T", params["content"])
	}
	_, err := tools.OptionalBool(params, "overwrite", false)
	return err
}

type createPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Lines   int    `json:"lines"`
}

func (t *createTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.RequireString(params, "path")
	if err != nil {
		return nil, err
	}
	content, _ := params["content"].(string)
	overwrite, err := tools.OptionalBool(params, "overwrite", false)
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)

	if msg := checkWritable(t.gate, path); msg != "" {
		return fail("%s", msg)
	}
	if len(content) > safety.MaxFileSize {
		return fail("Content too large (max %d bytes)", safety.MaxFileSize)
	}
	if _, statErr := os.Stat(path); statErr == nil && !overwrite {
		return fail("File already exists (use overwrite=true to replace)")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail("Failed to create file: %v", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fail("Failed to create file: %v", err)
	}

	t.logger.Debug("file created", "path", path, "size", len(content))
	return tools.JSONResult(createPayload{
		Success: true,
		Message: fmt.Sprintf("File created successfully: %s", path),
		Path:    path,
		Size:    len(content),
		Lines:   countLines(content),
	}, true)
}

// ---- read_file ----

type readTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *readTool) Name() string        { return "read_file" }
func (t *readTool) Description() string { return "Read the contents of a text file" }

func (t *readTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to read"},
		},
		"required": []string{"path"},
	}
}

func (t *readTool) Validate(params map[string]any) error {
	_, err := tools.RequireString(params, "path")
	return err
}

type readPayload struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Lines    int    `json:"lines"`
	Encoding string `json:"encoding"`
}

func (t *readTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.RequireString(params, "path")
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)
	if ok, msg := t.gate.CheckPath(path); !ok {
		return fail("Path blocked for security: %s", msg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail("File not found")
	}
	if info.Size() > safety.MaxFileSize {
		return fail("File too large (max %d bytes)", safety.MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail("Failed to read file: %v", err)
	}
	content := string(data)

	return tools.JSONResult(readPayload{
		Success:  true,
		Content:  content,
		Path:     path,
		Size:     len(content),
		Lines:    countLines(content),
		Encoding: "utf-8",
	}, true)
}

// ---- create_directory ----

type mkdirTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *mkdirTool) Name() string        { return "create_directory" }
func (t *mkdirTool) Description() string { return "Create a directory, including parents" }

func (t *mkdirTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory path to create"},
		},
		"required": []string{"path"},
	}
}

func (t *mkdirTool) Validate(params map[string]any) error {
	_, err := tools.RequireString(params, "path")
	return err
}

type mkdirPayload struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Path        string `json:"path"`
	Exists      bool   `json:"exists"`
	IsDirectory bool   `json:"is_directory"`
}

func (t *mkdirTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.RequireString(params, "path")
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)
	if ok, msg := t.gate.CheckPath(path); !ok {
		return fail("Path blocked for security: %s", msg)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fail("Failed to create directory: %v", err)
	}

	info, statErr := os.Stat(path)
	t.logger.Debug("directory created", "path", path)
	return tools.JSONResult(mkdirPayload{
		Success:     true,
		Message:     fmt.Sprintf("Directory created successfully: %s", path),
		Path:        path,
		Exists:      statErr == nil,
		IsDirectory: statErr == nil && info.IsDir(),
	}, true)
}

// ---- list_directory ----

type listTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *listTool) Name() string { return "list_directory" }
func (t *listTool) Description() string {
	return "List directory contents with type, size, and modification time"
}

func (t *listTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory to list. Defaults to '.'"},
		},
	}
}

func (t *listTool) Validate(params map[string]any) error {
	_, err := tools.OptionalString(params, "path", ".")
	return err
}

type listEntry struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	Modified  string `json:"modified"`
	Extension string `json:"extension,omitempty"`
}

type listPayload struct {
	Success     bool        `json:"success"`
	Path        string      `json:"path"`
	Items       []listEntry `json:"items"`
	TotalCount  int         `json:"total_count"`
	Directories int         `json:"directories"`
	Files       int         `json:"files"`
}

func (t *listTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.OptionalString(params, "path", ".")
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)
	if ok, msg := t.gate.CheckPath(path); !ok {
		return fail("Path blocked for security: %s", msg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail("Directory not found")
	}
	if !info.IsDir() {
		return fail("Path is not a directory")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fail("Failed to list directory: %v", err)
	}

	items := make([]listEntry, 0, len(entries))
	dirs, files := 0, 0
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			// Skip entries we cannot stat.
			continue
		}
		item := listEntry{
			Name:     entry.Name(),
			Type:     "file",
			Size:     fi.Size(),
			Modified: fi.ModTime().Format(time.RFC3339),
		}
		if entry.IsDir() {
			item.Type = "directory"
			dirs++
		} else {
			item.Extension = safety.Extension(entry.Name())
			files++
		}
		items = append(items, item)
	}

	// Directories first, then case-insensitive by name.
	sort.Slice(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type == "directory"
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	return tools.JSONResult(listPayload{
		Success:     true,
		Path:        path,
		Items:       items,
		TotalCount:  len(items),
		Directories: dirs,
		Files:       files,
	}, true)
}

// ---- copy_path ----

type copyTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *copyTool) Name() string        { return "copy_path" }
func (t *copyTool) Description() string { return "Copy a file or directory to a new location" }

func (t *copyTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":      map[string]any{"type": "string", "description": "Source file or directory"},
			"destination": map[string]any{"type": "string", "description": "Destination path"},
		},
		"required": []string{"source", "destination"},
	}
}

func (t *copyTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "source"); err != nil {
		return err
	}
	_, err := tools.RequireString(params, "destination")
	return err
}

type copyPayload struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Type        string `json:"type"`
}

func (t *copyTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	source, err := tools.RequireString(params, "source")
	if err != nil {
		return nil, err
	}
	destination, err := tools.RequireString(params, "destination")
	if err != nil {
		return nil, err
	}
	source = t.ws.Resolve(source)
	destination = t.ws.Resolve(destination)
	if ok, msg := t.gate.CheckPath(source); !ok {
		return fail("Source path blocked: %s", msg)
	}
	if ok, msg := t.gate.CheckPath(destination); !ok {
		return fail("Destination path blocked: %s", msg)
	}

	info, err := os.Stat(source)
	if err != nil {
		return fail("Source path does not exist")
	}

	kind := "file"
	if info.IsDir() {
		kind = "directory"
		err = copyDir(source, destination)
	} else {
		err = copyFile(source, destination, info.Mode())
	}
	if err != nil {
		return fail("Failed to copy: %v", err)
	}

	t.logger.Debug("path copied", "source", source, "destination", destination, "type", kind)
	return tools.JSONResult(copyPayload{
		Success:     true,
		Message:     fmt.Sprintf("Successfully copied %s", kind),
		Source:      source,
		Destination: destination,
		Type:        kind,
	}, true)
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, data, mode.Perm())
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode())
	})
}

// ---- search_replace ----

type replaceTool struct {
	gate   *safety.Gate
	ws     *workspace.Workspace
	logger *slog.Logger
}

func (t *replaceTool) Name() string { return "search_replace" }
func (t *replaceTool) Description() string {
	return "Search and replace text in a file, literally or by regular expression"
}

func (t *replaceTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path":      map[string]any{"type": "string", "description": "File to modify"},
			"search_pattern": map[string]any{"type": "string", "description": "Text or regex pattern to search for"},
			"replacement":    map[string]any{"type": "string", "description": "Replacement text"},
			"use_regex":      map[string]any{"type": "boolean", "description": "Interpret search_pattern as a regular expression. Defaults to false"},
		},
		"required": []string{"file_path", "search_pattern", "replacement"},
	}
}

func (t *replaceTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "file_path"); err != nil {
		return err
	}
	if _, err := tools.RequireString(params, "search_pattern"); err != nil {
		return err
	}
	if _, ok := params["replacement"].(string); !ok {
		return fmt.Errorf("parameter replacement must be a string")
	}
	_, err := tools.OptionalBool(params, "use_regex", false)
	return err
}

type replacePayload struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	FilePath      string `json:"file_path"`
	MatchesFound  int    `json:"matches_found"`
	UseRegex      bool   `json:"use_regex"`
	SearchPattern string `json:"search_pattern"`
	Replacement   string `json:"replacement"`
}

func (t *replaceTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.RequireString(params, "file_path")
	if err != nil {
		return nil, err
	}
	pattern, err := tools.RequireString(params, "search_pattern")
	if err != nil {
		return nil, err
	}
	replacement, _ := params["replacement"].(string)
	useRegex, err := tools.OptionalBool(params, "use_regex", false)
	if err != nil {
		return nil, err
	}
	path = t.ws.Resolve(path)

	if msg := checkWritable(t.gate, path); msg != "" {
		return fail("%s", msg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail("File not found")
	}
	original := string(data)

	var modified string
	var matches int
	if useRegex {
		re, compileErr := regexp.Compile(pattern)
		if compileErr != nil {
			return fail("Invalid regex pattern: %v", compileErr)
		}
		matches = len(re.FindAllStringIndex(original, -1))
		modified = re.ReplaceAllString(original, replacement)
	} else {
		matches = strings.Count(original, pattern)
		modified = strings.ReplaceAll(original, pattern, replacement)
	}

	if err := os.WriteFile(path, []byte(modified), 0o644); err != nil {
		return fail("Failed to search and replace: %v", err)
	}

	t.logger.Debug("search replace applied", "path", path, "matches", matches, "regex", useRegex)
	return tools.JSONResult(replacePayload{
		Success:       true,
		Message:       fmt.Sprintf("Successfully replaced %d occurrences", matches),
		FilePath:      path,
		MatchesFound:  matches,
		UseRegex:      useRegex,
		SearchPattern: pattern,
		Replacement:   replacement,
	}, true)
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
