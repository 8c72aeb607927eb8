//go:build windows

package osutil

import (
	"os"
	"os/exec"
	"syscall"
)

const finderName = "where"

// Windows has no process groups to signal, so only the finder itself is
// killed on cancellation.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Kill)
	}
}
