package runner

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeSuccess(t *testing.T) {
	res := normalize("echo hi", "/tmp", 0, "hi\n", "", false)
	if !res.Success {
		t.Error("Success = false, want true")
	}
	if res.Output != "hi" {
		t.Errorf("Output = %q, want trimmed stdout", res.Output)
	}
	if res.Error != nil {
		t.Errorf("Error = %v, want nil for empty stderr", *res.Error)
	}
	if res.Command != "echo hi" || res.WorkingDirectory != "/tmp" {
		t.Errorf("echo fields wrong: %+v", res)
	}
}

func TestNormalizeNonZeroExit(t *testing.T) {
	res := normalize("false", "/tmp", 1, "", "boom\n", false)
	if res.Success {
		t.Error("Success = true for non-zero exit")
	}
	if res.Error == nil || *res.Error != "boom" {
		t.Errorf("Error = %v, want trimmed stderr", res.Error)
	}
	if res.ReturnCode != 1 {
		t.Errorf("ReturnCode = %d, want 1", res.ReturnCode)
	}
}

func TestNormalizeTimeoutNeverSucceeds(t *testing.T) {
	// Exit code 0 with timedOut set must still fail.
	res := normalize("sleep 99", "/tmp", 0, "", "", true)
	if res.Success {
		t.Error("Success = true for timed out command")
	}
}

func TestResultJSONShape(t *testing.T) {
	res := normalize("echo hi", "/tmp", 0, "hi", "", false)
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, key := range []string{`"success"`, `"output"`, `"error"`, `"return_code"`, `"command"`, `"working_directory"`, `"timed_out"`} {
		if !strings.Contains(s, key) {
			t.Errorf("JSON missing key %s: %s", key, s)
		}
	}
	if !strings.Contains(s, `"error":null`) {
		t.Errorf("error should serialize as null when absent: %s", s)
	}
	if strings.Contains(s, "docker_container") {
		t.Errorf("docker_container should be omitted when empty: %s", s)
	}
}
