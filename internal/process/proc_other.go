//go:build !unix && !windows

package process

import (
	"os"
	"os/exec"
)

func configure(*exec.Cmd) {}

func terminate(p *os.Process) error {
	return p.Signal(os.Interrupt)
}

func kill(p *os.Process) error {
	return p.Kill()
}
