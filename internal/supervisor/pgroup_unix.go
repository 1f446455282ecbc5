//go:build unix

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// unixGroupController signals the child's entire process group using the
// negative-PID convention. Available on all POSIX platforms.
type unixGroupController struct{}

func newGroupController() groupController {
	return unixGroupController{}
}

func (unixGroupController) setup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (unixGroupController) terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	return syscall.Kill(-p.Pid, syscall.SIGTERM)
}

func (unixGroupController) kill(p *os.Process) error {
	if p == nil {
		return nil
	}
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
