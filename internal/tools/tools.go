// Package tools defines the tool interface and registry for Fundi.
// Tools are registered once at startup and served over MCP; each tool
// validates its own parameters before doing any work.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Tool is the interface all Fundi tools must implement.
type Tool interface {
	// Name returns the tool's unique identifier (e.g. "run_npm_command").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// InputSchema returns a JSON Schema object describing the tool's
	// parameters. This is published to MCP clients as the tool's input schema.
	InputSchema() map[string]any

	// Validate checks that params are well-formed before Execute runs,
	// so malformed requests fail fast with a clear message.
	Validate(params map[string]any) error

	// Execute runs the tool with the given parameters.
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Result is the outcome of a tool execution. Output carries the payload
// serialized for the client; Success mirrors the payload's own success flag
// so transports can mark errors without parsing the body.
type Result struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

// MaxOutputBytes is the default cap for tool output to prevent OOM.
const MaxOutputBytes = 1 << 20 // 1 MB

// JSONResult marshals a payload into a Result.
func JSONResult(payload any, success bool) (*Result, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &Result{Output: TruncateOutput(string(data), MaxOutputBytes), Success: success}, nil
}

// TruncateOutput caps a string at maxBytes, appending a truncation notice if cut.
func TruncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	const suffix = "\n... [output truncated]"
	if maxBytes <= len(suffix) {
		return s[:maxBytes]
	}
	return s[:maxBytes-len(suffix)] + suffix
}

// --- Parameter extraction helpers shared by tool packages ---

// RequireString extracts a required non-empty string param.
func RequireString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string, got %T", key, v)
	}
	if s == "" {
		return "", fmt.Errorf("parameter %s must not be empty", key)
	}
	return s, nil
}

// OptionalString extracts an optional string param, returning fallback when absent.
func OptionalString(params map[string]any, key, fallback string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string, got %T", key, v)
	}
	if s == "" {
		return fallback, nil
	}
	return s, nil
}

// OptionalInt extracts an optional integer param. JSON numbers arrive as
// float64; both forms are accepted.
func OptionalInt(params map[string]any, key string, fallback int) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number, got %T", key, v)
	}
}

// OptionalBool extracts an optional boolean param.
func OptionalBool(params map[string]any, key string, fallback bool) (bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %s must be a boolean, got %T", key, v)
	}
	return b, nil
}

// OptionalStringMap extracts an optional object param with string values.
func OptionalStringMap(params map[string]any, key string) (map[string]string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parameter %s must be an object, got %T", key, v)
	}
	out := make(map[string]string, len(raw))
	for k, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s.%s must be a string, got %T", key, k, item)
		}
		out[k] = s
	}
	return out, nil
}

// OptionalStringSlice extracts an optional array-of-strings parameter.
// Missing or null yields nil.
func OptionalStringSlice(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %s must be an array, got %T", key, v)
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %s[%d] must be a string, got %T", key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// Registry holds available tools keyed by name.
// Thread-safe for concurrent reads; writes should only happen at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Panics on duplicate names (startup config error, not runtime).
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		panic("duplicate tool registration: " + t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered tools ordered by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
