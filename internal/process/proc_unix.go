//go:build unix

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// configure puts the child in its own process group so a terminate request also reaches
// helpers it spawned (ffmpeg) and nothing keeps the output pipe open.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGTERM)
}

func kill(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
