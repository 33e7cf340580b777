//go:build !unix

package shell

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

func setGroupKill(*exec.Cmd) {}
