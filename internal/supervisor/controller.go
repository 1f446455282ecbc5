package supervisor

import (
	"os"
	"os/exec"
)

// groupController abstracts process-group signaling so platform differences
// live in one place instead of branching at call sites. The unix
// implementation signals the whole group; the fallback signals only the
// immediate child.
type groupController interface {
	// setup configures the command before Start so the child lands in its
	// own process group where the platform supports it.
	setup(cmd *exec.Cmd)

	// terminate requests graceful shutdown of the child (and its group).
	terminate(p *os.Process) error

	// kill forcefully ends the child (and its group).
	kill(p *os.Process) error
}
