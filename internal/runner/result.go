package runner

import "strings"

// Result is the uniform record returned by every command façade.
// Success is derived, never set independently: a result succeeds only when
// the process ran to completion with exit code zero.
type Result struct {
	Success          bool    `json:"success"`
	Output           string  `json:"output"`
	Error            *string `json:"error"`
	ReturnCode       int     `json:"return_code"`
	Command          string  `json:"command"`
	WorkingDirectory string  `json:"working_directory"`
	TimedOut         bool    `json:"timed_out"`
	DockerContainer  string  `json:"docker_container,omitempty"`
}

// normalize maps a raw execution outcome into a Result. Stdout and stderr
// are trimmed here; the supervisor returns them verbatim.
func normalize(command, dir string, exitCode int, stdout, stderr string, timedOut bool) Result {
	res := Result{
		Success:          !timedOut && exitCode == 0,
		Output:           strings.TrimSpace(stdout),
		ReturnCode:       exitCode,
		Command:          command,
		WorkingDirectory: dir,
		TimedOut:         timedOut,
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		res.Error = &msg
	}
	return res
}

// reject builds a Result for a request refused before any process spawned.
// ReturnCode -1 marks "no process ran".
func reject(command, dir, msg string) Result {
	return Result{
		Success:          false,
		Error:            &msg,
		ReturnCode:       -1,
		Command:          command,
		WorkingDirectory: dir,
	}
}
