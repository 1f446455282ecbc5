package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jkaninda/fundi/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Workspace = t.TempDir()
	return cfg
}

func mustNew(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestNewRegistersAllTools(t *testing.T) {
	srv := mustNew(t, testConfig(t))

	want := []string{
		"copy_path",
		"create_directory",
		"create_file",
		"create_project_from_template",
		"create_project_structure",
		"get_project_info",
		"initialize_git_repository",
		"list_available_templates",
		"list_directory",
		"read_file",
		"read_project_state",
		"run_database_command",
		"run_docker_command",
		"run_docker_compose",
		"run_git_command",
		"run_go_command",
		"run_npm_command",
		"run_npx_command",
		"run_python_command",
		"run_shell_command",
		"run_terraform_command",
		"save_project_state",
		"search_replace",
		"test_web_application",
	}
	got := srv.Registry().List()
	if len(got) != len(want) {
		t.Fatalf("registered %d tools, want %d:\n%v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("tool[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestNewRegistersDatabaseToolWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Database = &config.DatabaseToolConfig{DSN: "postgres://localhost/dev"}

	srv := mustNew(t, cfg)
	if srv.Registry().Get("query_database") == nil {
		t.Error("query_database not registered with DSN configured")
	}
}

func TestDefinitionCarriesSchema(t *testing.T) {
	srv := mustNew(t, testConfig(t))

	tool := srv.Registry().Get("run_npm_command")
	def := srv.definition(tool)
	if def.Name != "run_npm_command" {
		t.Errorf("definition name = %q", def.Name)
	}
	if def.Description == "" {
		t.Error("definition has no description")
	}
	if len(def.RawInputSchema) == 0 {
		t.Error("definition has no raw schema")
	}
}
