// Package consoletest provides a scripted stand-in for the headless
// console so sessions can be exercised without a team server.
package consoletest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"agbridge/pkg/conf"
	"agbridge/pkg/escseq"
	"agbridge/pkg/interpreter"
)

// Handler returns what the console prints for one submitted line, without
// the echo and the trailing prompt
type Handler func(line string) string

type Options struct {
	// Prompt defaults to the aggressor prompt
	Prompt string
	// Banner is printed before the first prompt
	Banner string
	// WithholdReady never prints the ready marker
	WithholdReady bool
	// ExitOnStart makes the console print Banner and exit at once
	ExitOnStart bool
	// ExitAfterReady makes the console exit right after the ready marker
	ExitAfterReady bool
	// SpawnErr fails every spawn
	SpawnErr error
	Handler  Handler
}

// Console spawns fake console processes and records them
type Console struct {
	opts Options

	mu       sync.Mutex
	commands []interpreter.Command
	ptys     []*Pty
}

func New(opts Options) *Console {
	if opts.Prompt == "" {
		opts.Prompt = escseq.ConsolePrompt(conf.DefaultPromptName)
	}
	return &Console{opts: opts}
}

// Spawn is an interpreter.SpawnFunc
func (c *Console) Spawn(cmd interpreter.Command) (interpreter.Pty, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, cmd)
	if c.opts.SpawnErr != nil {
		return nil, c.opts.SpawnErr
	}
	p := &Pty{
		opts: c.opts,
		pid:  10000 + len(c.ptys),
		done: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	c.ptys = append(c.ptys, p)

	p.mu.Lock()
	p.out.WriteString(c.opts.Banner)
	if c.opts.ExitOnStart {
		p.exit()
	} else {
		p.out.WriteString(c.opts.Prompt)
	}
	p.mu.Unlock()
	return p, nil
}

// Spawns counts spawn attempts, failed ones included
func (c *Console) Spawns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

func (c *Console) Commands() []interpreter.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interpreter.Command(nil), c.commands...)
}

func (c *Console) Ptys() []*Pty {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Pty(nil), c.ptys...)
}

// Running counts consoles that have not exited
func (c *Console) Running() int {
	n := 0
	for _, p := range c.Ptys() {
		if !p.Exited() {
			n++
		}
	}
	return n
}

// Pty is one fake console process
type Pty struct {
	opts Options
	pid  int

	mu     sync.Mutex
	cond   *sync.Cond
	out    bytes.Buffer
	in     []byte
	lines  []string
	closed bool
	exited bool
	killed bool
	done   chan struct{}
}

// exit must be called with mu held
func (p *Pty) exit() {
	if p.exited {
		return
	}
	p.exited = true
	close(p.done)
	p.cond.Broadcast()
}

func (p *Pty) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.out.Len() == 0 && !p.closed && !p.exited {
		p.cond.Wait()
	}
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.out.Len() > 0 {
		return p.out.Read(b)
	}
	return 0, io.EOF
}

func (p *Pty) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.exited {
		return 0, io.ErrClosedPipe
	}
	p.in = append(p.in, b...)
	for {
		i := bytes.IndexByte(p.in, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(p.in[:i]), "\r")
		p.in = p.in[i+1:]
		p.handle(line)
	}
	p.cond.Broadcast()
	return len(b), nil
}

// handle must be called with mu held
func (p *Pty) handle(line string) {
	p.lines = append(p.lines, line)
	p.out.WriteString(line + "\r\n")
	switch {
	case strings.Contains(line, conf.ReadyCommand):
		if !p.opts.WithholdReady {
			p.out.WriteString(conf.ReadyMarker + "\r\n")
		}
	case p.opts.Handler != nil:
		p.out.WriteString(p.opts.Handler(line))
	}
	p.out.WriteString(p.opts.Prompt)
	if p.opts.ExitAfterReady && strings.Contains(line, conf.ReadyCommand) {
		p.exit()
	}
}

func (p *Pty) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}

func (p *Pty) Resize(cols, rows uint32) error { return nil }
func (p *Pty) Pid() int                       { return p.pid }

func (p *Pty) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.killed {
		return errors.New("signal: killed")
	}
	return nil
}

func (p *Pty) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exited {
		p.killed = true
		p.exit()
	}
	return nil
}

// Exit makes the console process end on its own
func (p *Pty) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exit()
}

func (p *Pty) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *Pty) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Lines returns every line the console received
func (p *Pty) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}
