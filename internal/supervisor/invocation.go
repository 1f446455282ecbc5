package supervisor

import (
	"os/exec"
	"strings"
)

// Invocation describes what to execute: either a shell-interpreted command
// line or a literal argv with no shell involvement. Façades that need shell
// features (pipes, &&) use ShellLine; those invoking a known binary directly
// use Argv to avoid quoting hazards entirely.
type Invocation struct {
	shell   bool
	line    string
	program string
	args    []string
}

// ShellLine wraps a command string for interpretation by /bin/sh -c.
func ShellLine(line string) Invocation {
	return Invocation{shell: true, line: line}
}

// Argv wraps a program and its literal arguments; no shell is involved.
func Argv(program string, args ...string) Invocation {
	return Invocation{program: program, args: args}
}

// Empty reports whether the invocation carries no command at all.
func (inv Invocation) Empty() bool {
	if inv.shell {
		return strings.TrimSpace(inv.line) == ""
	}
	return inv.program == ""
}

// String returns the literal command line for audit fields and logs.
func (inv Invocation) String() string {
	if inv.shell {
		return inv.line
	}
	if len(inv.args) == 0 {
		return inv.program
	}
	return inv.program + " " + strings.Join(inv.args, " ")
}

// newCmd builds the exec.Cmd for this invocation.
func (inv Invocation) newCmd() *exec.Cmd {
	if inv.shell {
		return exec.Command("/bin/sh", "-c", inv.line)
	}
	return exec.Command(inv.program, inv.args...)
}
