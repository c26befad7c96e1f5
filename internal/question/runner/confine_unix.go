//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// confine starts cmd as the leader of a new process group so cancellation
// reaches every descendant, and drops credentials when runAs is set.
func confine(cmd *exec.Cmd, runAs *RunAs) {
	attr := &syscall.SysProcAttr{Setpgid: true}
	if runAs != nil {
		attr.Credential = &syscall.Credential{Uid: runAs.UID, Gid: runAs.GID, Groups: []uint32{}}
	}
	cmd.SysProcAttr = attr
	cmd.Cancel = func() error {
		killGroup(cmd)
		return nil
	}
}

// killGroup kills whatever is left of the case's process group, including
// background children that outlived the leader.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
