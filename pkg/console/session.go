package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"agbridge/pkg/conf"
	"agbridge/pkg/escseq"
	"agbridge/pkg/interpreter"
	"agbridge/pkg/slog"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
)

// State of a Session
type State int

const (
	Disconnected State = iota
	Connecting
	Handshaking
	Ready
	// Faulted sessions lost their stream while Ready and can not be reused
	Faulted
)

var stateNames = map[State]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Handshaking:  "handshaking",
	Ready:        "ready",
	Faulted:      "faulted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// readerGrace bounds how long Disconnect waits for the output reader to stop
const readerGrace = time.Second

// Config describes how to start and talk to one headless console
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	// Directory holds the launcher and the client artifact, it is also the
	// working directory of the console
	Directory string
	// Launcher is resolved against Directory unless absolute
	Launcher string
	// Artifact must exist in Directory before anything is spawned
	Artifact         string
	HandshakeTimeout time.Duration
	CommandTimeout   time.Duration
	// PromptName is the underlined name of the idle prompt
	PromptName string
	// MaxBufferSize bounds unread output in bytes, waits fail with
	// ErrBufferOverflow past it
	MaxBufferSize int
	Logger        *slog.Logger
	// Spawn starts the console, interpreter.StartPty when nil
	Spawn interpreter.SpawnFunc
}

func (c Config) withDefaults() Config {
	if c.Directory == "" {
		c.Directory = "."
	}
	if c.Launcher == "" {
		c.Launcher = conf.DefaultLauncher
	}
	if c.Artifact == "" {
		c.Artifact = conf.DefaultArtifact
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = conf.HandshakeTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = conf.Timeout
	}
	if c.PromptName == "" {
		c.PromptName = conf.DefaultPromptName
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = conf.MaxBufferSize
	}
	if c.Logger == nil {
		c.Logger = slog.NewDummyLog()
	}
	if c.Spawn == nil {
		c.Spawn = interpreter.StartPty
	}
	return c
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: team server host is required", ErrConfiguration)
	}
	if c.User == "" {
		return fmt.Errorf("%w: user is required", ErrConfiguration)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", ErrConfiguration)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrConfiguration, c.Port)
	}
	artifact := filepath.Join(c.Directory, c.Artifact)
	if fi, err := os.Stat(artifact); err != nil || fi.IsDir() {
		return fmt.Errorf("%w: %s not found", ErrConfiguration, artifact)
	}
	return nil
}

func (c Config) launcherPath() string {
	if filepath.IsAbs(c.Launcher) {
		return c.Launcher
	}
	return filepath.Join(c.Directory, c.Launcher)
}

// Session owns one console process and its pty. A Session is meant to be
// driven by a single goroutine, the rpc Client serializes access to it.
type Session struct {
	cfg    Config
	id     string
	log    *slog.Logger
	prompt Matcher

	mu         sync.Mutex
	state      State
	pty        interpreter.Pty
	buf        *expectBuffer
	readerDone chan struct{}
}

func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:    cfg,
		id:     uuid.NewString(),
		log:    cfg.Logger,
		prompt: Literal(escseq.ConsolePrompt(cfg.PromptName)),
		state:  Disconnected,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Prompt matches the idle prompt of the console
func (s *Session) Prompt() Matcher {
	return s.prompt
}

// CommandTimeout is used by Expect when no timeout is given
func (s *Session) CommandTimeout() time.Duration {
	return s.cfg.CommandTimeout
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Connect starts the console and waits until the team server reports the
// session as synchronized. On failure no process is left running.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.state != Disconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrConnection, state)
	}
	s.state = Connecting
	s.mu.Unlock()

	if err := s.cfg.validate(); err != nil {
		s.setState(Disconnected)
		return err
	}

	cmd := interpreter.Command{
		Path: s.cfg.launcherPath(),
		Args: []string{s.cfg.Host, strconv.Itoa(s.cfg.Port), s.cfg.User, s.cfg.Password},
		Dir:  s.cfg.Directory,
		Cols: conf.DefaultTerminalWidth,
		Rows: conf.DefaultTerminalHeight,
	}
	s.log.WithCaller().DebugWith("Spawning console",
		slog.F("session_id", s.id),
		slog.F("launcher", cmd.Path),
		slog.F("host", s.cfg.Host),
		slog.F("port", s.cfg.Port),
		slog.F("user", s.cfg.User))

	p, err := s.cfg.Spawn(cmd)
	if err != nil {
		s.setState(Disconnected)
		return fmt.Errorf("%w: failed to start %s: %w", ErrConnection, cmd.Path, err)
	}

	buf := newExpectBuffer(s.cfg.MaxBufferSize)
	done := make(chan struct{})
	s.mu.Lock()
	s.pty = p
	s.buf = buf
	s.readerDone = done
	s.state = Handshaking
	s.mu.Unlock()
	go s.readLoop(p, buf, done)

	err = s.handshake(p, buf)
	if err == nil {
		// streamClosed only faults Ready sessions, so a console that went
		// away before this point is caught here
		s.mu.Lock()
		closed, cause := buf.closedWith()
		if closed {
			err = fmt.Errorf("%w: console exited after synchronizing: %v", ErrConnection, cause)
		} else {
			s.state = Ready
		}
		s.mu.Unlock()
	}
	if err != nil {
		s.mu.Lock()
		s.pty = nil
		s.buf = nil
		s.state = Disconnected
		s.mu.Unlock()
		s.release(p, done)
		return err
	}

	s.log.InfoWith("Console ready",
		slog.F("session_id", s.id),
		slog.F("host", s.cfg.Host),
		slog.F("pid", p.Pid()))
	return nil
}

func (s *Session) handshake(p interpreter.Pty, buf *expectBuffer) error {
	if _, err := buf.wait(s.prompt, s.cfg.HandshakeTimeout); err != nil {
		output := buf.snapshot()
		s.logHandshakeOutput("prompt", output)
		if errors.Is(err, ErrStreamClosed) {
			return fmt.Errorf("%w: console exited before prompting: %w", ErrConnection, err)
		}
		return &HandshakeError{Stage: "prompt", Output: output, Err: err}
	}

	line, err := writeLine(p, conf.DefaultPrefix, conf.ReadyCommand)
	if err == nil {
		_, err = buf.wait(Literal(line), s.cfg.HandshakeTimeout)
	}
	if err == nil {
		_, err = buf.wait(Literal(conf.ReadyMarker), s.cfg.HandshakeTimeout)
	}
	if err != nil {
		output := buf.snapshot()
		s.logHandshakeOutput("ready", output)
		return &HandshakeError{Stage: "ready", Output: output, Err: err}
	}
	return nil
}

func (s *Session) logHandshakeOutput(stage, output string) {
	s.log.ErrorWith("Console did not synchronize",
		slog.F("session_id", s.id),
		slog.F("stage", stage),
		slog.F("output", ansi.Strip(output)))
}

func (s *Session) readLoop(p interpreter.Pty, buf *expectBuffer, done chan struct{}) {
	defer close(done)
	chunk := make([]byte, conf.ReadBufferSize)
	for {
		n, err := p.Read(chunk)
		if n > 0 {
			buf.write(chunk[:n])
		}
		if err != nil {
			buf.close(err)
			s.streamClosed(p, err)
			return
		}
	}
}

// streamClosed faults a Ready session whose console went away and makes
// sure the process is gone
func (s *Session) streamClosed(p interpreter.Pty, err error) {
	s.mu.Lock()
	faulted := s.pty == p && s.state == Ready
	if faulted {
		s.state = Faulted
	}
	s.mu.Unlock()
	if !faulted {
		return
	}
	s.log.WarnWith("Console stream closed",
		slog.F("session_id", s.id),
		slog.F("err", err))
	if kErr := p.Kill(); kErr != nil {
		s.log.WithCaller().DebugWith("Failed to kill console",
			slog.F("session_id", s.id),
			slog.F("err", kErr))
	}
}

// release kills the console, closes its pty and reaps it
func (s *Session) release(p interpreter.Pty, done chan struct{}) {
	if err := p.Kill(); err != nil {
		s.log.WithCaller().WarnWith("Failed to kill console",
			slog.F("session_id", s.id),
			slog.F("err", err))
	}
	_ = p.Close()
	select {
	case <-done:
	case <-time.After(readerGrace):
		s.log.WithCaller().DebugWith("Output reader still running after close",
			slog.F("session_id", s.id))
	}
	if err := p.Wait(); err != nil {
		s.log.WithCaller().DebugWith("Console exited",
			slog.F("session_id", s.id),
			slog.F("err", err))
	}
}

// Disconnect terminates the console. Calling it on a disconnected session
// only logs.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	p, done := s.pty, s.readerDone
	s.pty = nil
	s.buf = nil
	s.readerDone = nil
	if s.state != Faulted {
		s.state = Disconnected
	}
	s.mu.Unlock()

	if p == nil {
		s.log.WithCaller().DebugWith("Console was already disconnected",
			slog.F("session_id", s.id))
		return nil
	}
	s.release(p, done)
	s.log.InfoWith("Console disconnected",
		slog.F("session_id", s.id),
		slog.F("host", s.cfg.Host))
	return nil
}

// Compose returns the console line for cmd
func Compose(prefix, cmd string) string {
	if prefix == "" {
		return cmd + ";"
	}
	return prefix + " " + cmd + ";"
}

func writeLine(w io.Writer, prefix, cmd string) (string, error) {
	line := Compose(prefix, cmd)
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return line, fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	return line, nil
}

// Send writes one console line, then sleeps for settle. It returns the
// line as sent so callers can wait for its echo.
func (s *Session) Send(cmd, prefix string, settle time.Duration) (string, error) {
	s.mu.Lock()
	p, state := s.pty, s.state
	s.mu.Unlock()
	if state != Ready || p == nil {
		return "", fmt.Errorf("%w: session is %s", ErrNotConnected, state)
	}

	line, err := writeLine(p, prefix, cmd)
	if err != nil {
		return line, err
	}
	s.log.WithCaller().DebugWith("Sent console line",
		slog.F("session_id", s.id),
		slog.F("length", len(line)))
	if settle > 0 {
		time.Sleep(settle)
	}
	return line, nil
}

// Expect waits until m matches the console output and returns everything
// before the match. A timeout of zero or less uses the command timeout.
// A timed out wait leaves the session usable.
func (s *Session) Expect(m Matcher, timeout time.Duration) (string, error) {
	s.mu.Lock()
	buf, state := s.buf, s.state
	s.mu.Unlock()
	if buf == nil {
		return "", fmt.Errorf("%w: session is %s", ErrNotConnected, state)
	}
	if timeout <= 0 {
		timeout = s.cfg.CommandTimeout
	}
	out, err := buf.wait(m, timeout)
	if err != nil {
		s.log.WithCaller().DebugWith("Console wait failed",
			slog.F("session_id", s.id),
			slog.F("matcher", m.String()),
			slog.F("err", err))
	}
	return out, err
}
