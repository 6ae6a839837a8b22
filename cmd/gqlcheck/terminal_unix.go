//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// hideInterruptEcho turns off ECHOCTL on the controlling terminal, so Ctrl+C used to abort a
// check run does not leave "^C" in front of the interrupt message. the returned func restores it.
func hideInterruptEcho() func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}

	state, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return func() {}
	}

	saved := *state
	state.Lflag &^= unix.ECHOCTL
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, state); err != nil {
		return func() {}
	}

	return func() {
		_ = unix.IoctlSetTermios(fd, ioctlWriteTermios, &saved)
	}
}
