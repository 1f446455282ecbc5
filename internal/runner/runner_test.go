package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jkaninda/fundi/internal/metrics"
	"github.com/jkaninda/fundi/internal/safety"
	"github.com/jkaninda/fundi/internal/supervisor"
	"github.com/jkaninda/fundi/internal/workspace"
)

// fakeExecutor records every request and replays scripted outcomes, so tests
// can assert both what would be executed and that rejected requests never
// reach the executor at all.
type fakeExecutor struct {
	base     time.Duration
	outcomes []supervisor.Outcome
	requests []supervisor.Request
}

func (f *fakeExecutor) Run(_ context.Context, req supervisor.Request) supervisor.Outcome {
	f.requests = append(f.requests, req)
	if len(f.outcomes) == 0 {
		return supervisor.Outcome{Stdout: "ok"}
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

func (f *fakeExecutor) BaseTimeout() time.Duration {
	if f.base == 0 {
		return 60 * time.Second
	}
	return f.base
}

func newTestRunner(exec Executor) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(exec, safety.New(nil), nil, nil, logger)
}

func projectDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}
	return dir
}

func TestNpmDisallowedTokenNeverSpawns(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Npm(context.Background(), "exec rm -rf /", projectDir(t, "package.json"), "")
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.ReturnCode != -1 {
		t.Errorf("ReturnCode = %d, want -1", res.ReturnCode)
	}
	if res.Error == nil || !strings.Contains(*res.Error, "Command not allowed") {
		t.Errorf("error = %v, want allowlist rejection", res.Error)
	}
	if len(fake.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(fake.requests))
	}
}

func TestNpmMissingManifest(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Npm(context.Background(), "install", t.TempDir(), "")
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Error == nil || *res.Error != "package.json not found in working directory" {
		t.Errorf("error = %v, want package.json rejection", res.Error)
	}
	if len(fake.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(fake.requests))
	}
}

func TestNpmManifestExemptions(t *testing.T) {
	for _, cmd := range []string{"init", "version"} {
		fake := &fakeExecutor{}
		r := newTestRunner(fake)
		res := r.Npm(context.Background(), cmd, t.TempDir(), "")
		if res.ReturnCode == -1 {
			t.Errorf("npm %s rejected without manifest: %v", cmd, res.Error)
		}
	}
}

func TestNpmRestrictedDirectory(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Npm(context.Background(), "install", "/etc/passwd", "")
	if res.Success || res.Error == nil || !strings.Contains(*res.Error, "blocked") {
		t.Errorf("expected path safety rejection, got %+v", res)
	}
	if len(fake.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(fake.requests))
	}
}

func TestNpmInstallBuildsShellLine(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)
	dir := projectDir(t, "package.json")

	res := r.Npm(context.Background(), "install express", dir, "")
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("executor received %d requests, want 1", len(fake.requests))
	}
	req := fake.requests[0]
	if got := req.Invocation.String(); got != "npm install express" {
		t.Errorf("invocation = %q, want npm install express", got)
	}
	if req.Timeout != 180*time.Second {
		t.Errorf("timeout = %v, want 180s (3x base)", req.Timeout)
	}
	if req.Dir != dir {
		t.Errorf("dir = %q, want %q", req.Dir, dir)
	}
}

func TestNpmVersionAvoidsUpdateCheck(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	r.Npm(context.Background(), "version", t.TempDir(), "")
	if len(fake.requests) != 1 {
		t.Fatalf("executor received %d requests, want 1", len(fake.requests))
	}
	if got := fake.requests[0].Invocation.String(); got != "npm --version" {
		t.Errorf("invocation = %q, want npm --version", got)
	}
}

func TestPipInstallUsesModuleForm(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Python(context.Background(), "pip install somepkg", t.TempDir(), "")
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	got := fake.requests[0].Invocation.String()
	if got != "python3 -m pip install somepkg --no-input" {
		t.Errorf("invocation = %q, want module form with --no-input", got)
	}
}

func TestPipInstallRespectsExistingFlag(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	r.Python(context.Background(), "pip install somepkg --yes", t.TempDir(), "")
	got := fake.requests[0].Invocation.String()
	if strings.Contains(got, "--no-input") {
		t.Errorf("invocation = %q, should not append --no-input", got)
	}
}

func TestPipDisallowedSubcommand(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Python(context.Background(), "pip download somepkg", t.TempDir(), "")
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Error == nil || !strings.Contains(*res.Error, "pip") {
		t.Errorf("error = %v, want pip subcommand rejection", res.Error)
	}
	if len(fake.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(fake.requests))
	}
}

func TestPythonQuotedArgumentsSurvive(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	r.Python(context.Background(), `python3 -c "print('hello world')"`, t.TempDir(), "")
	if len(fake.requests) != 1 {
		t.Fatalf("executor received %d requests, want 1", len(fake.requests))
	}
	got := fake.requests[0].Invocation.String()
	if !strings.Contains(got, "print('hello world')") {
		t.Errorf("invocation = %q, quoted argument was split", got)
	}
}

func TestShellPassthrough(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	r.Shell(context.Background(), "ls -la | head -5", t.TempDir(), "")
	if got := fake.requests[0].Invocation.String(); got != "ls -la | head -5" {
		t.Errorf("invocation = %q, shell line should pass through unchanged", got)
	}
	if got := fake.requests[0].Timeout; got != 60*time.Second {
		t.Errorf("timeout = %v, want base 60s", got)
	}
}

func TestShellDisallowedVerb(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Shell(context.Background(), "rm -rf /", t.TempDir(), "")
	if res.Success || len(fake.requests) != 0 {
		t.Fatalf("rm must be rejected before spawning, got %+v", res)
	}
}

func TestTerraformTimeoutMultiplier(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	r.Terraform(context.Background(), "apply -auto-approve", t.TempDir(), "")
	if got := fake.requests[0].Timeout; got != 600*time.Second {
		t.Errorf("timeout = %v, want 600s (10x base)", got)
	}
}

func TestComposeRequiresComposeFile(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Compose(context.Background(), "up -d", t.TempDir(), "")
	if res.Success {
		t.Fatal("expected rejection without compose file")
	}
	if res.Error == nil || !strings.Contains(*res.Error, "compose file") {
		t.Errorf("error = %v, want compose file rejection", res.Error)
	}
	if len(fake.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(fake.requests))
	}
}

func TestComposeVersionSkipsFileCheck(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Compose(context.Background(), "version", t.TempDir(), "")
	if res.ReturnCode == -1 {
		t.Fatalf("version query rejected: %v", res.Error)
	}
}

func TestComposeLegacyFallback(t *testing.T) {
	fake := &fakeExecutor{
		outcomes: []supervisor.Outcome{
			{ExitCode: 1, Stderr: "docker: 'compose' is not a docker command."},
			{ExitCode: 0, Stdout: "done"},
		},
	}
	r := newTestRunner(fake)

	res := r.Compose(context.Background(), "up -d", projectDir(t, "docker-compose.yml"), "")
	if !res.Success {
		t.Fatalf("fallback result not successful: %+v", res)
	}
	if len(fake.requests) != 2 {
		t.Fatalf("executor received %d requests, want 2", len(fake.requests))
	}
	if got := fake.requests[0].Invocation.String(); got != "docker compose up -d" {
		t.Errorf("first invocation = %q, want modern form", got)
	}
	if got := fake.requests[1].Invocation.String(); got != "docker-compose up -d" {
		t.Errorf("second invocation = %q, want legacy form", got)
	}
}

func TestDatabaseUnknownEngine(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Database(context.Background(), "psql -c 'select 1'", "oracle", t.TempDir(), "", "")
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Error == nil || !strings.Contains(*res.Error, "postgresql") {
		t.Errorf("error = %v, want supported engine list", res.Error)
	}
	if len(fake.requests) != 0 {
		t.Errorf("executor received %d requests, want 0", len(fake.requests))
	}
}

func TestDatabaseWrongEngineBinary(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	res := r.Database(context.Background(), "mysql -e 'select 1'", "postgresql", t.TempDir(), "", "")
	if res.Success || len(fake.requests) != 0 {
		t.Fatalf("mysql binary must be rejected for postgresql, got %+v", res)
	}
}

func TestDatabaseInContainer(t *testing.T) {
	fake := &fakeExecutor{
		outcomes: []supervisor.Outcome{
			{ExitCode: 0, Stdout: "pgbox\n"},
			{ExitCode: 0, Stdout: " count \n-------\n     1\n"},
		},
	}
	r := newTestRunner(fake)

	res := r.Database(context.Background(), "psql -U dev -c 'select 1'", "postgresql", t.TempDir(), "pgbox", "stdin text")
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.DockerContainer != "pgbox" {
		t.Errorf("DockerContainer = %q, want pgbox", res.DockerContainer)
	}
	if len(fake.requests) != 2 {
		t.Fatalf("executor received %d requests, want 2 (ps probe + exec)", len(fake.requests))
	}
	probe := fake.requests[0].Invocation.String()
	if !strings.Contains(probe, "docker ps --filter name=pgbox") {
		t.Errorf("probe invocation = %q", probe)
	}
	exec := fake.requests[1].Invocation.String()
	if !strings.HasPrefix(exec, "docker exec -i pgbox") {
		t.Errorf("exec invocation = %q, want interactive docker exec", exec)
	}
}

func TestDatabaseContainerNotRunning(t *testing.T) {
	fake := &fakeExecutor{
		outcomes: []supervisor.Outcome{{ExitCode: 0, Stdout: "otherbox\n"}},
	}
	r := newTestRunner(fake)

	res := r.Database(context.Background(), "psql -c 'select 1'", "postgresql", t.TempDir(), "pgbox", "")
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Error == nil || !strings.Contains(*res.Error, "not running") {
		t.Errorf("error = %v, want not-running rejection", res.Error)
	}
	if len(fake.requests) != 1 {
		t.Errorf("executor received %d requests, want 1 (probe only)", len(fake.requests))
	}
}

func TestTimeoutOutcomeNormalized(t *testing.T) {
	fake := &fakeExecutor{
		outcomes: []supervisor.Outcome{
			{ExitCode: -1, Stderr: "Command timed out after 180 seconds", TimedOut: true},
		},
	}
	r := newTestRunner(fake)

	res := r.Npm(context.Background(), "install", projectDir(t, "package.json"), "")
	if res.Success {
		t.Fatal("timed out result must not be successful")
	}
	if !res.TimedOut {
		t.Error("TimedOut not propagated")
	}
	if res.ReturnCode != -1 {
		t.Errorf("ReturnCode = %d, want -1", res.ReturnCode)
	}
	if res.Error == nil || !strings.Contains(*res.Error, "timed out after 180 seconds") {
		t.Errorf("error = %v, want timeout message", res.Error)
	}
}

func TestGitVersionQuery(t *testing.T) {
	fake := &fakeExecutor{}
	r := newTestRunner(fake)

	r.Git(context.Background(), "--version", t.TempDir(), "")
	if got := fake.requests[0].Invocation.String(); got != "git --version" {
		t.Errorf("invocation = %q, want git --version", got)
	}
}

func TestWorkspaceAnchorsRelativeDir(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "api")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	fake := &fakeExecutor{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(fake, safety.New(nil), &workspace.Workspace{Root: root}, nil, logger)

	res := r.Shell(context.Background(), "ls", "api", "")
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(fake.requests))
	}
	if got := fake.requests[0].Dir; got != sub {
		t.Errorf("Dir = %q, want %q", got, sub)
	}

	// Empty cwd means the workspace root itself.
	r.Shell(context.Background(), "pwd", "", "")
	if got := fake.requests[1].Dir; got != root {
		t.Errorf("Dir = %q, want workspace root %q", got, root)
	}
}

func TestExecutionMetricsRecorded(t *testing.T) {
	fake := &fakeExecutor{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewCollector()
	r := New(fake, safety.New(nil), nil, m, logger)

	res := r.Shell(context.Background(), "ls", t.TempDir(), "")
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if got := testutil.ToFloat64(m.CommandExecutionsTotal.WithLabelValues("shell", "success")); got != 1 {
		t.Errorf("shell success executions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveExecutions); got != 0 {
		t.Errorf("active executions after completion = %v, want 0", got)
	}
}
