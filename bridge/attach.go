package bridge

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"agbridge/pkg/conf"
	"agbridge/pkg/interpreter"

	"golang.org/x/term"
)

// AttachCommand is the console process Attach starts with the resolved login
func (b *Bridge) AttachCommand() interpreter.Command {
	c := b.consoleConfig()
	launcher := c.Launcher
	if !filepath.IsAbs(launcher) {
		launcher = filepath.Join(c.Directory, launcher)
	}
	return interpreter.Command{
		Path: launcher,
		Args: []string{c.Host, strconv.Itoa(c.Port), c.User, c.Password},
		Dir:  c.Directory,
		Cols: conf.DefaultTerminalWidth,
		Rows: conf.DefaultTerminalHeight,
	}
}

// Attach hands the local terminal over to an interactive console until it exits
func (b *Bridge) Attach() error {
	spawn := b.cfg.Spawn
	if spawn == nil {
		spawn = interpreter.StartPty
	}

	cmd := b.AttachCommand()
	fd := int(os.Stdin.Fd())
	if w, h, err := term.GetSize(fd); err == nil {
		cmd.Cols, cmd.Rows = uint32(w), uint32(h)
	}

	p, err := spawn(cmd)
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	defer func() { _ = p.Kill() }()

	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set terminal to raw mode: %w", err)
		}
		// Terminal is restored before anything else is printed
		defer func() {
			_ = term.Restore(fd, oldState)
			fmt.Println()
		}()
	}

	done := make(chan struct{})
	defer close(done)
	go monitorWindowResize(p, fd, done)

	go func() { _, _ = io.Copy(p, os.Stdin) }()

	// Console closed by the team server or by the operator typing quit
	_, _ = io.Copy(b.cfg.Out, p)
	return p.Wait()
}

func resizeTo(p interpreter.Pty, fd int) {
	if w, h, err := term.GetSize(fd); err == nil {
		_ = p.Resize(uint32(w), uint32(h))
	}
}
