//go:build !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package main

import "golang.org/x/sys/unix"

// termios ioctl requests on linux and the other unix systems.
const (
	ioctlReadTermios  = unix.TCGETS
	ioctlWriteTermios = unix.TCSETS
)
