//go:build windows

package bridge

import (
	"agbridge/pkg/interpreter"
)

func monitorWindowResize(_ interpreter.Pty, _ int, done chan struct{}) {
	// Windows doesn't support SIGWINCH in the same way.
	// We just wait for done channel to close.
	<-done
}
