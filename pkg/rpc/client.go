package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"agbridge/pkg/conf"
	"agbridge/pkg/console"
	"agbridge/pkg/javaser"
	"agbridge/pkg/script"
	"agbridge/pkg/slog"
)

// base64Line accepts standard alphabet base64 with correct padding, nothing else on the line
var base64Line = regexp.MustCompile(`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=|[A-Za-z0-9+/]{4})$`)

type Config struct {
	Console console.Config
	// Prefix is the console command used to evaluate lines, "e" by default
	Prefix string
	// Decoder defaults to a javaser.Decoder with default options
	Decoder *javaser.Decoder
	// OnRetry is called with every failed attempt of ConnectRetry
	OnRetry func(attempt int, err error)
	Logger  *slog.Logger
}

// Client turns a console session into calls returning decoded values. All
// methods are safe for concurrent use, calls are serialized.
type Client struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	session *console.Session
}

func New(cfg Config) *Client {
	if cfg.Prefix == "" {
		cfg.Prefix = conf.DefaultPrefix
	}
	if cfg.Decoder == nil {
		cfg.Decoder = javaser.NewDecoder(javaser.Options{})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.NewDummyLog()
	}
	if cfg.Console.Logger == nil {
		cfg.Console.Logger = cfg.Logger
	}
	return &Client{
		cfg: cfg,
		log: cfg.Logger,
	}
}

// Connect starts a new console session unless a ready one exists
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect()
}

func (c *Client) connect() error {
	if c.session != nil {
		if c.session.State() == console.Ready {
			return nil
		}
		_ = c.session.Disconnect()
		c.session = nil
	}
	s := console.NewSession(c.cfg.Console)
	if err := s.Connect(); err != nil {
		return err
	}
	c.session = s
	return nil
}

// ConnectRetry calls Connect every delay until it succeeds or ctx is done.
// Each attempt runs on a fresh session.
func (c *Client) ConnectRetry(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		delay = conf.RetryDelay
	}
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, last)
		}

		c.mu.Lock()
		err := c.connect()
		c.mu.Unlock()
		if err == nil {
			if attempt > 1 {
				c.log.InfoWith("Connected after retrying", slog.F("attempts", attempt))
			}
			return nil
		}

		last = err
		c.log.WarnWith("Connection attempt failed",
			slog.F("attempt", attempt),
			slog.F("retry_in", delay.String()),
			slog.F("err", err))
		if c.cfg.OnRetry != nil {
			c.cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), last)
		case <-timer.C:
		}
	}
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		c.log.WithCaller().Debugf("Client was already disconnected")
		return nil
	}
	err := c.session.Disconnect()
	c.session = nil
	return err
}

// Connected reports whether the client holds a ready session
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.State() == console.Ready
}

func (c *Client) ready() (*console.Session, error) {
	if c.session == nil {
		return nil, fmt.Errorf("%w: client is not connected", console.ErrNotConnected)
	}
	if state := c.session.State(); state != console.Ready {
		return nil, fmt.Errorf("%w: session is %s", console.ErrNotConnected, state)
	}
	return c.session, nil
}

// SendFireAndForget sends cmd without waiting for any output, then waits settle
func (c *Client) SendFireAndForget(cmd string, settle time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.ready()
	if err != nil {
		return err
	}
	_, err = s.Send(cmd, c.cfg.Prefix, settle)
	return err
}

// SendAndCaptureText sends cmd, waits for its echo and then for expect,
// the console prompt when nil. It returns the text between both matches.
func (c *Client) SendAndCaptureText(cmd string, expect console.Matcher, timeout time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture(cmd, expect, timeout)
}

func (c *Client) capture(cmd string, expect console.Matcher, timeout time.Duration) (string, error) {
	s, err := c.ready()
	if err != nil {
		return "", err
	}
	line, err := s.Send(cmd, c.cfg.Prefix, 0)
	if err != nil {
		return "", err
	}
	if _, err := s.Expect(console.Literal(line), timeout); err != nil {
		return "", fmt.Errorf("echo not seen: %w", err)
	}
	if expect == nil {
		expect = s.Prompt()
	}
	return s.Expect(expect, timeout)
}

// Invoke evaluates expression in the console and returns its decoded result
func (c *Client) Invoke(expression string, timeout time.Duration) (javaser.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	text, err := c.capture(script.Wrap(expression), nil, timeout)
	if errors.Is(err, console.ErrBufferOverflow) {
		c.log.WarnWith("Result exceeds the console buffer",
			slog.F("expression", expression),
			slog.F("max_buffer_size", c.cfg.Console.MaxBufferSize),
			slog.F("err", err))
		return javaser.Value{}, fmt.Errorf("result of %q: %w", expression, err)
	}
	if err != nil {
		return javaser.Value{}, err
	}

	payload, ok := ExtractPayload(text)
	if !ok {
		return javaser.Value{}, &ProtocolError{
			Preview: preview(text, conf.PreviewLength),
			Reason:  "no base64 line found",
		}
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return javaser.Value{}, &DecodeError{Preview: preview(payload, conf.PreviewLength), Err: err}
	}
	v, err := c.cfg.Decoder.Decode(raw)
	if err != nil {
		return javaser.Value{}, &DecodeError{Preview: preview(payload, conf.PreviewLength), Err: err}
	}

	c.log.WithCaller().DebugWith("Invoked expression",
		slog.F("expression", expression),
		slog.F("payload_bytes", len(raw)),
		slog.F("kind", v.Kind().String()),
		slog.F("elapsed", time.Since(start).String()))
	return v, nil
}

// ExtractPayload returns the first line of text that is entirely valid
// standard base64. Carriage returns at line ends are ignored.
func ExtractPayload(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if base64Line.MatchString(line) {
			return line, true
		}
	}
	return "", false
}
