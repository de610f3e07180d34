//go:build !windows

package bridge

import (
	"os"
	"os/signal"
	"syscall"

	"agbridge/pkg/interpreter"
)

func monitorWindowResize(p interpreter.Pty, fd int, done chan struct{}) {
	sigwinch := make(chan os.Signal, 1)
	signal.Notify(sigwinch, syscall.SIGWINCH)
	defer signal.Stop(sigwinch)

	for {
		select {
		case <-done:
			return
		case <-sigwinch:
			resizeTo(p, fd)
		}
	}
}
