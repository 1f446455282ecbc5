// Package database implements a direct read-only SQL query tool against a
// configured PostgreSQL DSN. It complements the run_database_command façade:
// that one shells out to client binaries, this one speaks the wire protocol
// and returns structured rows.
//
// Security:
//   - Only read-only statements allowed (SELECT, EXPLAIN, SHOW, DESCRIBE, WITH)
//   - Write and DDL statements blocked before any connection is used
//   - Per-query timeout enforced via context
//   - Row limit enforced to prevent OOM
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.

	"github.com/jkaninda/fundi/internal/config"
	"github.com/jkaninda/fundi/internal/tools"
)

const (
	defaultMaxRows    = 1000
	defaultTimeoutSec = 30
)

// blockedPrefixes are SQL statement prefixes that indicate write/DDL operations.
var blockedPrefixes = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "GRANT", "REVOKE", "COPY", "VACUUM", "REINDEX",
	"COMMENT", "LOCK", "DISCARD", "SET ", "RESET", "BEGIN",
	"COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE", "PREPARE",
	"EXECUTE", "DEALLOCATE", "LISTEN", "NOTIFY", "UNLISTEN",
	"LOAD", "CLUSTER", "REFRESH", "SECURITY",
}

// allowedPrefixes are the only SQL statement prefixes permitted.
var allowedPrefixes = []string{
	"SELECT", "EXPLAIN", "SHOW", "DESCRIBE", "WITH",
}

// Tool runs read-only SQL queries against the configured database.
// Safe for concurrent use: the lazy connection open is serialized.
type Tool struct {
	config config.DatabaseToolConfig
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// New creates the query tool. The connection is opened lazily on first Execute.
func New(cfg config.DatabaseToolConfig, logger *slog.Logger) *Tool {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSec
	}
	return &Tool{config: cfg, logger: logger}
}

// Register adds the query tool to the registry when a DSN is configured.
func Register(reg *tools.Registry, cfg *config.DatabaseToolConfig, logger *slog.Logger) {
	if cfg == nil {
		return
	}
	reg.Register(New(*cfg, logger))
}

func (t *Tool) Name() string { return "query_database" }
func (t *Tool) Description() string {
	return "Run a read-only SQL query (SELECT, EXPLAIN, SHOW, DESCRIBE, WITH) against the configured database and return structured rows"
}

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":    map[string]any{"type": "string", "description": "Read-only SQL query to execute"},
			"max_rows": map[string]any{"type": "integer", "description": "Maximum number of rows to return (default: 1000)"},
		},
		"required": []string{"query"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	query, err := tools.RequireString(params, "query")
	if err != nil {
		return err
	}
	if _, err := tools.OptionalInt(params, "max_rows", 0); err != nil {
		return err
	}
	return validateReadOnly(query)
}

// Payload is the structured query result.
type Payload struct {
	Success   bool       `json:"success"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	RowCount  int        `json:"row_count"`
	Truncated bool       `json:"truncated"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	query, err := tools.RequireString(params, "query")
	if err != nil {
		return nil, err
	}
	if err := validateReadOnly(query); err != nil {
		return nil, err
	}

	db, err := t.conn()
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	maxRows, err := tools.OptionalInt(params, "max_rows", t.config.MaxRows)
	if err != nil {
		return nil, err
	}
	if maxRows <= 0 || maxRows > t.config.MaxRows {
		maxRows = t.config.MaxRows
	}

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(t.config.TimeoutSeconds)*time.Second)
	defer cancel()

	t.logger.InfoContext(ctx, "query_database executing",
		slog.String("query_prefix", truncateQuery(query, 100)),
		slog.Int("max_rows", maxRows),
	)

	rows, err := db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution: %w", err)
	}
	defer rows.Close()

	payload, err := collectRows(rows, maxRows)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	return tools.JSONResult(payload, true)
}

// conn returns the shared connection pool, opening it on first use.
// The open is serialized so concurrent queries never race on t.db.
func (t *Tool) conn() (*sql.DB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db != nil {
		return t.db, nil
	}
	if t.config.DSN == "" {
		return nil, fmt.Errorf("database DSN not configured")
	}

	db, err := sql.Open("pgx", t.config.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Conservative connection pool for a tool, not a web server.
	db.SetMaxOpenConns(3)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	t.db = db
	return db, nil
}

// validateReadOnly checks that a SQL statement is safe for read-only execution.
func validateReadOnly(query string) error {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return fmt.Errorf("query must not be empty")
	}

	normalized = stripLeadingComments(normalized)
	upper := strings.ToUpper(normalized)

	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return fmt.Errorf("query blocked: %s statements are not allowed (read-only mode)", strings.TrimSpace(prefix))
		}
	}

	allowed := false
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(upper, prefix) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("query must start with one of: %s", strings.Join(allowedPrefixes, ", "))
	}

	// Block multiple statements (semicolons not at the end).
	trimmed := strings.TrimRight(normalized, "; \t\n\r")
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple statements not allowed; submit one query at a time")
	}
	return nil
}

// stripLeadingComments removes SQL comments from the beginning of a query.
func stripLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.Index(s, "\n")
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			return s
		}
	}
}

// collectRows reads SQL rows into the structured payload, bounded by maxRows.
func collectRows(rows *sql.Rows, maxRows int) (Payload, error) {
	cols, err := rows.Columns()
	if err != nil {
		return Payload{}, fmt.Errorf("getting columns: %w", err)
	}

	payload := Payload{Success: true, Columns: cols, Rows: [][]string{}}

	values := make([]any, len(cols))
	scanArgs := make([]any, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if payload.RowCount >= maxRows {
			payload.Truncated = true
			break
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return Payload{}, fmt.Errorf("scanning row %d: %w", payload.RowCount, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		payload.Rows = append(payload.Rows, row)
		payload.RowCount++
	}
	if err := rows.Err(); err != nil {
		return Payload{}, fmt.Errorf("iterating rows: %w", err)
	}
	return payload, nil
}

// formatValue converts a scanned SQL value to a display string.
func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch val := v.(type) {
	case []byte:
		s := string(val)
		if len(s) > 500 {
			return s[:500] + "..."
		}
		return s
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// truncateQuery returns the first n characters of a query for logging.
func truncateQuery(q string, n int) string {
	q = strings.ReplaceAll(q, "\n", " ")
	if len(q) > n {
		return q[:n] + "..."
	}
	return q
}
