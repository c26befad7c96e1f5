//go:build !unix

package runner

import "os/exec"

// Process groups and credential changes are unix only.
func confine(*exec.Cmd, *RunAs) {}

func killGroup(*exec.Cmd) {}
