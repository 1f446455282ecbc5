// Package webprobe implements the web application probe tool. It issues a
// single HTTP request, measures latency, classifies the response body by
// content type, and emits heuristic issues for the selected test mode.
// It shares the structured-result conventions of the command tools but does
// not touch the process-execution core.
package webprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/jkaninda/fundi/internal/tools"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 5 << 20 // 5 MB
	textPreviewBytes = 500

	// Latency thresholds for the performance test mode.
	slowThreshold     = 1 * time.Second
	verySlowThreshold = 3 * time.Second
)

var testTypes = map[string]bool{
	"functionality": true,
	"accessibility": true,
	"performance":   true,
}

// Config configures the probe tool.
type Config struct {
	Timeout          time.Duration // Zero = 30s.
	MaxResponseBytes int64         // Zero = 5 MB.
}

// Tool probes a running web application over HTTP.
type Tool struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates the web probe tool.
func New(cfg Config, logger *slog.Logger) *Tool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxBytes
	}
	return &Tool{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Register adds the probe tool to the registry.
func Register(reg *tools.Registry, cfg Config, logger *slog.Logger) {
	reg.Register(New(cfg, logger))
}

func (t *Tool) Name() string { return "test_web_application" }
func (t *Tool) Description() string {
	return "Send an HTTP request to a web application, measure latency, classify the response, and report heuristic functionality, accessibility, or performance issues"
}

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":       map[string]any{"type": "string", "description": "URL to probe, e.g. http://localhost:3000/health"},
			"test_type": map[string]any{"type": "string", "enum": []string{"functionality", "accessibility", "performance"}, "description": "Test mode. Defaults to functionality"},
			"method":    map[string]any{"type": "string", "description": "HTTP method. Defaults to GET"},
			"data":      map[string]any{"type": "string", "description": "Optional request body"},
			"headers":   map[string]any{"type": "object", "description": "Optional request headers"},
			"timeout":   map[string]any{"type": "integer", "description": "Request timeout in seconds. Defaults to 30"},
		},
		"required": []string{"url"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	raw, err := tools.RequireString(params, "url")
	if err != nil {
		return err
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	testType, err := tools.OptionalString(params, "test_type", "functionality")
	if err != nil {
		return err
	}
	if !testTypes[testType] {
		return fmt.Errorf("unsupported test_type %q; supported: accessibility, functionality, performance", testType)
	}
	if _, err := tools.OptionalString(params, "method", http.MethodGet); err != nil {
		return err
	}
	if _, err := tools.OptionalStringMap(params, "headers"); err != nil {
		return err
	}
	_, err = tools.OptionalInt(params, "timeout", 0)
	return err
}

// Performance captures response timing.
type Performance struct {
	ResponseTimeMS int64 `json:"response_time_ms"`
	ContentLength  int   `json:"content_length"`
}

// Payload is the probe report.
type Payload struct {
	Success     bool              `json:"success"`
	StatusCode  int               `json:"status_code"`
	ContentType string            `json:"content_type"`
	Performance Performance       `json:"performance"`
	ParsedData  map[string]any    `json:"parsed_data"`
	Issues      []string          `json:"issues"`
	Headers     map[string]string `json:"headers"`
	URL         string            `json:"url"`
	TestType    string            `json:"test_type"`
}

type failure struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	URL      string `json:"url"`
	TestType string `json:"test_type"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	rawURL, err := tools.RequireString(params, "url")
	if err != nil {
		return nil, err
	}
	testType, err := tools.OptionalString(params, "test_type", "functionality")
	if err != nil {
		return nil, err
	}
	method, err := tools.OptionalString(params, "method", http.MethodGet)
	if err != nil {
		return nil, err
	}
	body, err := tools.OptionalString(params, "data", "")
	if err != nil {
		return nil, err
	}
	headers, err := tools.OptionalStringMap(params, "headers")
	if err != nil {
		return nil, err
	}
	timeoutSecs, err := tools.OptionalInt(params, "timeout", 0)
	if err != nil {
		return nil, err
	}

	if timeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
		defer cancel()
	}

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), rawURL, reqBody)
	if err != nil {
		return tools.JSONResult(failure{Error: fmt.Sprintf("invalid request: %v", err), URL: rawURL, TestType: testType}, false)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("web probe failed", "url", rawURL, "error", err)
		return tools.JSONResult(failure{Error: fmt.Sprintf("request failed: %v", err), URL: rawURL, TestType: testType}, false)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.config.MaxResponseBytes))
	elapsed := time.Since(start)
	if err != nil {
		return tools.JSONResult(failure{Error: fmt.Sprintf("reading response: %v", err), URL: rawURL, TestType: testType}, false)
	}

	contentType := resp.Header.Get("Content-Type")
	parsed := classify(contentType, data)

	payload := Payload{
		Success:     resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Performance: Performance{
			ResponseTimeMS: elapsed.Milliseconds(),
			ContentLength:  len(data),
		},
		ParsedData: parsed,
		Issues:     issues(testType, resp.StatusCode, elapsed, parsed),
		Headers:    flattenHeaders(resp.Header),
		URL:        rawURL,
		TestType:   testType,
	}

	t.logger.Debug("web probe completed",
		"url", rawURL, "status", resp.StatusCode, "duration", elapsed.Round(time.Millisecond).String())
	return tools.JSONResult(payload, payload.Success)
}

// classify parses the body according to its content type.
func classify(contentType string, data []byte) map[string]any {
	switch {
	case strings.Contains(contentType, "application/json"):
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return map[string]any{"type": "json", "parse_error": err.Error()}
		}
		return map[string]any{"type": "json", "data": v}
	case strings.Contains(contentType, "text/html"):
		return parseHTML(data)
	default:
		preview := string(data)
		if len(preview) > textPreviewBytes {
			preview = preview[:textPreviewBytes]
		}
		return map[string]any{"type": "text", "preview": preview}
	}
}

// htmlSummary is the minimal extraction the probe performs on HTML pages.
type htmlSummary struct {
	title            string
	headings         []string
	forms            int
	images           int
	imagesMissingAlt int
	links            int
}

// parseHTML extracts the title, headings, form/image/link counts, and
// alt-text coverage from an HTML document.
func parseHTML(data []byte) map[string]any {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return map[string]any{"type": "html", "parse_error": err.Error()}
	}

	var s htmlSummary
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					s.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				s.headings = append(s.headings, textContent(n))
			case "form":
				s.forms++
			case "img":
				s.images++
				if attr(n, "alt") == "" {
					s.imagesMissingAlt++
				}
			case "a":
				if attr(n, "href") != "" {
					s.links++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if s.headings == nil {
		s.headings = []string{}
	}
	return map[string]any{
		"type":               "html",
		"title":              s.title,
		"headings":           s.headings,
		"forms":              s.forms,
		"images":             s.images,
		"images_missing_alt": s.imagesMissingAlt,
		"links":              s.links,
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// issues applies the heuristic checks for the selected test mode.
func issues(testType string, status int, elapsed time.Duration, parsed map[string]any) []string {
	out := []string{}

	if status >= 400 {
		out = append(out, fmt.Sprintf("HTTP error status: %d", status))
	}

	switch testType {
	case "accessibility":
		if parsed["type"] == "html" {
			if title, _ := parsed["title"].(string); title == "" {
				out = append(out, "Page has no <title>")
			}
			if headings, ok := parsed["headings"].([]string); ok && len(headings) == 0 {
				out = append(out, "Page has no heading elements")
			}
			if missing, ok := parsed["images_missing_alt"].(int); ok && missing > 0 {
				out = append(out, fmt.Sprintf("%d image(s) missing alt text", missing))
			}
		} else {
			out = append(out, "Response is not HTML; accessibility checks skipped")
		}
	case "performance":
		switch {
		case elapsed > verySlowThreshold:
			out = append(out, fmt.Sprintf("Response very slow: %dms (threshold %dms)",
				elapsed.Milliseconds(), verySlowThreshold.Milliseconds()))
		case elapsed > slowThreshold:
			out = append(out, fmt.Sprintf("Response slow: %dms (threshold %dms)",
				elapsed.Milliseconds(), slowThreshold.Milliseconds()))
		}
	}
	return out
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
