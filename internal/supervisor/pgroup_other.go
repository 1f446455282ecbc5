//go:build !unix

package supervisor

import (
	"os"
	"os/exec"
)

// fallbackGroupController terminates only the immediate child where group
// signaling is unavailable. Grandchildren may survive; callers should treat
// a timed-out outcome as "best-effort cleanup attempted" on these platforms.
type fallbackGroupController struct{}

func newGroupController() groupController {
	return fallbackGroupController{}
}

func (fallbackGroupController) setup(*exec.Cmd) {}

func (fallbackGroupController) terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}

func (fallbackGroupController) kill(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}
