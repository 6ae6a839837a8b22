//go:build windows

package main

// hideInterruptEcho does nothing on windows, the console doesn't echo ^C.
func hideInterruptEcho() func() {
	return func() {}
}
