package credentials

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrNoTerminal = errors.New("no terminal available for interactive password prompt")

// Prompter asks the operator for a secret
type Prompter interface {
	Prompt(label string) (string, error)
}

// TerminalPrompter reads without echo from a terminal
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (t *TerminalPrompter) Prompt(label string) (string, error) {
	fd := int(t.In.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}
	_, _ = fmt.Fprint(t.Out, label)
	secret, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(t.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(string(secret), "\r\n"), nil
}

// EnvPrompter returns the value of an environment variable instead of asking
type EnvPrompter struct {
	Name string
	// Next is asked when the variable is unset
	Next Prompter
}

func (e EnvPrompter) Prompt(label string) (string, error) {
	if v, ok := os.LookupEnv(e.Name); ok && v != "" {
		return v, nil
	}
	if e.Next == nil {
		return "", fmt.Errorf("%s is not set", e.Name)
	}
	return e.Next.Prompt(label)
}
