package interpreter

import (
	"io"
	"os"
	"strings"
)

// Pty is a child process bound to a pseudo terminal
type Pty interface {
	io.ReadWriteCloser
	Resize(cols, rows uint32) error
	// Wait blocks until the child exits, it is safe to call more than once
	Wait() error
	// Kill terminates the child and everything it started
	Kill() error
	Pid() int
}

// Command describes a process to start on a pseudo terminal
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env is appended to the environment of the current process
	Env  []string
	Cols uint32
	Rows uint32
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// SpawnFunc starts a Command, StartPty is the implementation for the
// running platform
type SpawnFunc func(c Command) (Pty, error)

// IsColorOn checks if colors are enabled on the system by checking known environment variables
func IsColorOn() bool {
	// System requests not to enable colors (by convention: https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// Terminal supports colors
	term := os.Getenv("TERM")
	if strings.Contains(term, "color") || strings.HasPrefix(term, "xterm") {
		return true
	}

	// A color range is supported
	colorTerm := os.Getenv("COLORTERM")
	if strings.Contains(colorTerm, "truecolor") || strings.Contains(colorTerm, "24bit") {
		return true
	}

	// System enables colors (macOS/BSD)
	return os.Getenv("CLICOLOR") == "1" || os.Getenv("CLICOLOR_FORCE") == "1"
}
