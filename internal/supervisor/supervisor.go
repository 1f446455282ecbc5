// Package supervisor executes one external command to completion or timeout
// with guaranteed cleanup. Children run in their own process group so that
// shell-spawned grandchildren are signaled together with the immediate child.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// maxOutputBytes caps stdout/stderr to prevent OOM from chatty commands.
	maxOutputBytes = 1 << 20 // 1 MB

	defaultBaseTimeout = 60 * time.Second
	defaultGracePeriod = 5 * time.Second
)

// Config configures the supervisor. Pass it explicitly; there is no global
// fallback configuration.
type Config struct {
	BaseTimeout time.Duration // Default wall-clock timeout. Zero = 60s.
	GracePeriod time.Duration // Wait between SIGTERM and SIGKILL. Zero = 5s.
}

// Request describes a single command execution.
type Request struct {
	Invocation Invocation
	Dir        string        // Working directory. Must exist; façades validate it first.
	Timeout    time.Duration // Zero = supervisor base timeout.
	Env        []string      // Full child environment (see execenv.Sanitize).
	Stdin      string        // Optional stdin text. Empty = stdin closed.
}

// Outcome is the raw result of one execution.
//
// ExitCode -1 is the sentinel for "exit code could not be determined"
// (timeout, spawn failure, cancellation). TimedOut implies ExitCode == -1.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Supervisor runs commands in supervised process groups.
//
// Guarantees:
//   - Each execution owns exactly one child process group
//   - stdout/stderr capped at 1 MB each
//   - On timeout: SIGTERM to the group, grace period, SIGKILL to the group,
//     then an unconditional wait so no zombie is left behind
//   - Signaling races against natural exit are swallowed
//
// Invocations are independent; the supervisor holds no per-call state and is
// safe for concurrent use.
type Supervisor struct {
	config     Config
	controller groupController
	logger     *slog.Logger
}

// New creates a Supervisor. The process-group controller is selected by
// platform capability at build time.
func New(cfg Config, logger *slog.Logger) *Supervisor {
	if cfg.BaseTimeout <= 0 {
		cfg.BaseTimeout = defaultBaseTimeout
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	return &Supervisor{
		config:     cfg,
		controller: newGroupController(),
		logger:     logger,
	}
}

// BaseTimeout returns the configured base timeout. Façades scale it by
// their family multiplier.
func (s *Supervisor) BaseTimeout() time.Duration {
	return s.config.BaseTimeout
}

// Run executes the request and blocks until completion, timeout, or context
// cancellation. It never returns an error: every failure mode is folded into
// the Outcome so callers always have a structured result.
func (s *Supervisor) Run(ctx context.Context, req Request) Outcome {
	if req.Invocation.Empty() {
		return Outcome{ExitCode: -1, Stderr: "empty command"}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.config.BaseTimeout
	}

	cmd := req.Invocation.newCmd()
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, remaining: maxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, remaining: maxOutputBytes}

	// Place the child in its own process group so the whole tree can be
	// signaled on timeout.
	s.controller.setup(cmd)

	execID := uuid.NewString()
	s.logger.Debug("supervisor executing",
		slog.String("exec_id", execID),
		slog.String("command", req.Invocation.String()),
		slog.String("dir", req.Dir),
		slog.Duration("timeout", timeout),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		s.logger.Warn("supervisor spawn failed",
			slog.String("exec_id", execID),
			slog.String("error", err.Error()),
		)
		return Outcome{ExitCode: -1, Stderr: fmt.Sprintf("failed to start command: %v", err)}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		outcome := Outcome{
			ExitCode: exitCode(waitErr),
			Stdout:   stdoutBuf.String(),
			Stderr:   stderrBuf.String(),
		}
		if outcome.ExitCode == -1 && outcome.Stderr == "" && waitErr != nil {
			outcome.Stderr = waitErr.Error()
		}
		s.logger.Debug("supervisor completed",
			slog.String("exec_id", execID),
			slog.Int("exit_code", outcome.ExitCode),
			slog.Duration("duration", time.Since(start)),
		)
		return outcome

	case <-timer.C:
		s.reap(cmd, done)
		s.logger.Warn("supervisor timed out",
			slog.String("exec_id", execID),
			slog.String("command", req.Invocation.String()),
			slog.Duration("timeout", timeout),
		)
		return Outcome{
			ExitCode: -1,
			Stderr:   timeoutMessage(timeout),
			TimedOut: true,
		}

	case <-ctx.Done():
		s.reap(cmd, done)
		s.logger.Warn("supervisor canceled",
			slog.String("exec_id", execID),
			slog.String("reason", ctx.Err().Error()),
		)
		return Outcome{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("command canceled: %v", ctx.Err()),
		}
	}
}

// reap escalates: graceful terminate, grace period, forceful kill, then an
// unconditional wait so the process table entry is always collected.
// Signaling errors are ignored: the child may have exited between the
// timeout firing and the signal landing, and that race is not a failure.
func (s *Supervisor) reap(cmd *exec.Cmd, done <-chan error) {
	_ = s.controller.terminate(cmd.Process)

	grace := time.NewTimer(s.config.GracePeriod)
	defer grace.Stop()

	select {
	case <-done:
		return
	case <-grace.C:
	}

	_ = s.controller.kill(cmd.Process)
	<-done
}

// exitCode maps a Wait error to the exit code, with -1 for undeterminable.
func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// limitedWriter stops writing after a byte limit. Excess output is silently
// discarded rather than treated as an error.
type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.remaining <= 0 {
		return len(p), nil
	}
	if len(p) > lw.remaining {
		p = p[:lw.remaining]
	}
	n, err := lw.w.Write(p)
	lw.remaining -= n
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// timeoutMessage renders the timeout for the stderr field. Whole seconds
// round up so a sub-second budget never reads as "0 seconds".
func timeoutMessage(timeout time.Duration) string {
	secs := int(timeout / time.Second)
	if timeout%time.Second != 0 {
		secs++
	}
	return fmt.Sprintf("Command timed out after %d seconds", secs)
}
