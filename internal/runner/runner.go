// Package runner implements the command façades. Every façade follows the
// same pipeline: path safety gate, working-directory check, allowlist
// lookup, family preconditions, then a supervised execution whose outcome
// is normalized into a Result. A request refused at any step before the
// execution stage never spawns a process.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jkaninda/fundi/internal/execenv"
	"github.com/jkaninda/fundi/internal/metrics"
	"github.com/jkaninda/fundi/internal/policy"
	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/supervisor"
	"github.com/jkaninda/fundi/internal/workspace"
)

// Executor runs one supervised command. *supervisor.Supervisor satisfies
// this; tests substitute a fake to prove rejected requests never spawn.
type Executor interface {
	Run(ctx context.Context, req supervisor.Request) supervisor.Outcome
	BaseTimeout() time.Duration
}

// Runner dispatches validated commands to the supervisor, one method per
// command family. It holds no per-call state and is safe for concurrent use.
type Runner struct {
	exec    Executor
	gate    *safety.Gate
	ws      *workspace.Workspace
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a Runner. The workspace anchors relative working directories
// and may be nil, as may the metrics collector.
func New(exec Executor, gate *safety.Gate, ws *workspace.Workspace, m *metrics.Collector, logger *slog.Logger) *Runner {
	return &Runner{exec: exec, gate: gate, ws: ws, metrics: m, logger: logger}
}

// familySpec parameterizes the shared façade pipeline for one command family.
type familySpec struct {
	family     policy.Family
	multiplier int

	// shellTokenize selects shell-aware tokenization so quoted arguments
	// containing spaces survive as single tokens.
	shellTokenize bool

	// precondition runs after the allowlist check, before execution.
	// A non-empty return rejects the request with that message.
	precondition func(dir, token string) string

	// build produces the invocation from the validated command text.
	build func(command string, tokens []string) supervisor.Invocation
}

// run is the shared façade pipeline.
func (r *Runner) run(ctx context.Context, spec familySpec, command, dir, stdin string) Result {
	family := string(spec.family)

	dir = r.ws.Resolve(dir)
	if ok, msg := r.gate.CheckPath(dir); !ok {
		r.rejected(family, "restricted_path")
		return reject(command, dir, fmt.Sprintf("Working directory blocked: %s", msg))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		r.rejected(family, "missing_directory")
		return reject(command, dir, fmt.Sprintf("working directory does not exist: %s", dir))
	}

	tokens, err := tokenize(command, spec.shellTokenize)
	if err != nil {
		r.rejected(family, "bad_command")
		return reject(command, dir, fmt.Sprintf("invalid command: %v", err))
	}
	token := ""
	if len(tokens) > 0 {
		token = tokens[0]
	}
	if !policy.IsAllowed(spec.family, token) {
		r.rejected(family, "not_allowed")
		return reject(command, dir, fmt.Sprintf("Command not allowed: %q. Allowed %s commands: %s",
			token, family, strings.Join(policy.Allowed(spec.family), ", ")))
	}

	if spec.precondition != nil {
		if msg := spec.precondition(dir, token); msg != "" {
			r.rejected(family, "precondition")
			return reject(command, dir, msg)
		}
	}

	inv := spec.build(command, tokens)
	return r.execute(ctx, spec, inv, dir, stdin)
}

// execute delegates to the supervisor and normalizes the outcome.
func (r *Runner) execute(ctx context.Context, spec familySpec, inv supervisor.Invocation, dir, stdin string) Result {
	family := string(spec.family)
	timeout := r.timeout(spec.multiplier)

	r.metrics.ExecutionStarted()
	defer r.metrics.ExecutionFinished()

	start := time.Now()
	out := r.exec.Run(ctx, supervisor.Request{
		Invocation: inv,
		Dir:        dir,
		Timeout:    timeout,
		Env:        execenv.Sanitize(nil),
		Stdin:      stdin,
	})
	elapsed := time.Since(start)

	status := "success"
	switch {
	case out.TimedOut:
		status = "timeout"
		r.metrics.ObserveTimeout(family)
	case out.ExitCode != 0:
		status = "error"
	}
	r.metrics.ObserveExecution(family, status, elapsed)
	r.logger.Debug("command finished",
		"family", family,
		"command", inv.String(),
		"exit_code", out.ExitCode,
		"timed_out", out.TimedOut,
		"duration", elapsed.Round(time.Millisecond).String(),
	)

	return normalize(inv.String(), dir, out.ExitCode, out.Stdout, out.Stderr, out.TimedOut)
}

func (r *Runner) rejected(family, reason string) {
	r.metrics.ObserveRejection(family, reason)
	r.logger.Warn("command rejected", "family", family, "reason", reason)
}

func (r *Runner) timeout(multiplier int) time.Duration {
	if multiplier < 1 {
		multiplier = 1
	}
	return r.exec.BaseTimeout() * time.Duration(multiplier)
}

func tokenize(command string, shellAware bool) ([]string, error) {
	if shellAware {
		return policy.ShellSplit(command)
	}
	return strings.Fields(command), nil
}
