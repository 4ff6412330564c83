//go:build unix

package engine

import (
	"os"
	"syscall"
)

// pauseProcess stops the synthesizer process on Unix systems
func pauseProcess(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

// resumeProcess continues the synthesizer process on Unix systems
func resumeProcess(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}
