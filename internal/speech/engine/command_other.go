//go:build !unix

package engine

import (
	"fmt"
	"os"
)

// Windows has no SIGSTOP/SIGCONT equivalent for a child process.
func pauseProcess(*os.Process) error {
	return fmt.Errorf("pause: %w", ErrUnsupported)
}

func resumeProcess(*os.Process) error {
	return fmt.Errorf("resume: %w", ErrUnsupported)
}
