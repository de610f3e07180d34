//go:build windows

package interpreter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/UserExistsError/conpty"
	"golang.org/x/sys/windows"
)

type winPty struct {
	cpty     *conpty.ConPty
	filter   *screenFilter
	raw      []byte
	out      []byte
	waitOnce sync.Once
	waitErr  error
}

// Read returns the ConPTY output without its screen repaint sequences
func (p *winPty) Read(b []byte) (int, error) {
	for len(p.out) == 0 {
		n, err := p.cpty.Read(p.raw)
		if n > 0 {
			p.out = append(p.out, p.filter.Process(p.raw[:n])...)
		}
		if err != nil && len(p.out) == 0 {
			return 0, err
		}
	}
	n := copy(b, p.out)
	p.out = p.out[n:]
	return n, nil
}

func (p *winPty) Write(b []byte) (int, error) { return p.cpty.Write(b) }
func (p *winPty) Close() error                { return p.cpty.Close() }
func (p *winPty) Pid() int                    { return p.cpty.Pid() }
func (p *winPty) Resize(cols, rows uint32) error {
	return p.cpty.Resize(int(cols), int(rows))
}

func (p *winPty) Wait() error {
	p.waitOnce.Do(func() {
		code, err := p.cpty.Wait(context.Background())
		if err == nil && code != 0 {
			err = fmt.Errorf("exit status %d", code)
		}
		p.waitErr = err
	})
	return p.waitErr
}

func (p *winPty) Kill() error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(p.cpty.Pid()))
	if err != nil {
		// Already gone
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return nil
		}
		return err
	}
	defer func() { _ = windows.CloseHandle(h) }()
	return windows.TerminateProcess(h, 1)
}

// StartPty runs c on a ConPTY
func StartPty(c Command) (Pty, error) {
	if !conpty.IsConPtyAvailable() {
		return nil, fmt.Errorf("ConPTY is not available on this system")
	}
	args := make([]string, 0, len(c.Args)+1)
	for _, a := range append([]string{c.Path}, c.Args...) {
		args = append(args, syscall.EscapeArg(a))
	}
	opts := []conpty.ConPtyOption{
		conpty.ConPtyDimensions(int(c.Cols), int(c.Rows)),
		conpty.ConPtyEnv(append(os.Environ(), c.Env...)),
	}
	if c.Dir != "" {
		opts = append(opts, conpty.ConPtyWorkDir(c.Dir))
	}
	cpty, err := conpty.Start(strings.Join(args, " "), opts...)
	if err != nil {
		return nil, err
	}
	return &winPty{
		cpty:   cpty,
		filter: &screenFilter{},
		raw:    make([]byte, 32*1024),
	}, nil
}
