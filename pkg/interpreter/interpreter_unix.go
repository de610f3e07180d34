//go:build !windows

package interpreter

import (
	"errors"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

type unixPty struct {
	file     *os.File
	cmd      *exec.Cmd
	waitOnce sync.Once
	waitErr  error
}

func (p *unixPty) Read(b []byte) (n int, err error)  { return p.file.Read(b) }
func (p *unixPty) Write(b []byte) (n int, err error) { return p.file.Write(b) }
func (p *unixPty) Close() error                      { return p.file.Close() }
func (p *unixPty) Pid() int                          { return p.cmd.Process.Pid }
func (p *unixPty) Resize(cols, rows uint32) error {
	return pty.Setsize(p.file, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (p *unixPty) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// Kill signals the whole process group, pty.Start places the child in its
// own session so launcher scripts take their JVM down with them.
func (p *unixPty) Kill() error {
	err := unix.Kill(-p.cmd.Process.Pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	if kErr := p.cmd.Process.Kill(); kErr != nil && !errors.Is(kErr, os.ErrProcessDone) {
		return errors.Join(err, kErr)
	}
	return nil
}

// StartPty runs c on a new pseudo terminal
func StartPty(c Command) (Pty, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	f, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(c.Cols), Rows: uint16(c.Rows)})
	if err != nil {
		return nil, err
	}
	return &unixPty{file: f, cmd: cmd}, nil
}
