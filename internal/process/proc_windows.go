//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// configure keeps the child from opening a console window.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

// terminate kills the process. Windows has no catchable terminate signal for console-less children.
func terminate(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}
