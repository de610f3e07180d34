package rpc

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"agbridge/pkg/conf"
	"agbridge/pkg/console"
	"agbridge/pkg/console/consoletest"
	"agbridge/pkg/interpreter"
	"agbridge/pkg/javaser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stringStream serializes a short java.lang.String
func stringStream(s string) []byte {
	b := []byte{0xAC, 0xED, 0x00, 0x05, 0x74, 0x00, byte(len(s))}
	return append(b, s...)
}

// longStringStream serializes a java.lang.String of any length as TC_LONGSTRING
func longStringStream(s string) []byte {
	b := []byte{0xAC, 0xED, 0x00, 0x05, 0x7C}
	b = binary.BigEndian.AppendUint64(b, uint64(len(s)))
	return append(b, s...)
}

func encoded(s string) string {
	return base64.StdEncoding.EncodeToString(stringStream(s))
}

// invokeHandler answers wrapped calls with output and anything else with nothing
func invokeHandler(output string) consoletest.Handler {
	return func(line string) string {
		if strings.HasPrefix(line, conf.DefaultPrefix+" sub callback") {
			return output
		}
		return ""
	}
}

func newTestClient(t *testing.T, fake *consoletest.Console) *Client {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, conf.DefaultArtifact), nil, 0o600))
	return New(Config{
		Console: console.Config{
			Host:             "10.0.0.5",
			Port:             conf.DefaultPort,
			User:             "neo_striker",
			Password:         "secret",
			Directory:        dir,
			HandshakeTimeout: 200 * time.Millisecond,
			CommandTimeout:   time.Second,
			Spawn:            fake.Spawn,
		},
	})
}

func connected(t *testing.T, output string) (*Client, *consoletest.Console) {
	t.Helper()
	fake := consoletest.New(consoletest.Options{Handler: invokeHandler(output)})
	c := newTestClient(t, fake)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { _ = c.Disconnect() })
	return c, fake
}

func TestInvokeSinglePayload(t *testing.T) {
	payload := encoded("DC01")
	c, _ := connected(t, "\r\n[*] job started\r\n"+payload)

	got, err := c.Invoke("return computer()", 0)
	require.NoError(t, err)

	expected, err := javaser.Decode(stringStream("DC01"))
	require.NoError(t, err)
	assert.True(t, javaser.Equal(expected, got), "got %s", got)
	assert.Equal(t, "DC01", got.Str())
}

func TestInvokeNoPayload(t *testing.T) {
	c, _ := connected(t, "\r\nwarning: unknown function: computer\r\nat line 1")

	_, err := c.Invoke("return computer()", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol), err.Error())
	assert.False(t, errors.Is(err, ErrDecode))

	var pErr *ProtocolError
	require.True(t, errors.As(err, &pErr))
	assert.LessOrEqual(t, len([]rune(pErr.Preview)), conf.PreviewLength)
	assert.Contains(t, pErr.Preview, "warning")
	assert.True(t, c.Connected())
}

func TestInvokeFirstPayloadWins(t *testing.T) {
	c, _ := connected(t, "\r\n"+encoded("first")+"\r\n"+encoded("second"))

	got, err := c.Invoke("return 1", 0)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Str())
}

func TestInvokeDecodeError(t *testing.T) {
	bad := base64.StdEncoding.EncodeToString([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0x70})
	c, _ := connected(t, "\r\n"+bad)

	_, err := c.Invoke("return 1", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode), err.Error())
	assert.True(t, errors.Is(err, javaser.ErrBadMagic), err.Error())
	assert.False(t, errors.Is(err, ErrProtocol))

	var dErr *DecodeError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, 4, dErr.Offset())
}

func TestInvokeResultLargerThanBuffer(t *testing.T) {
	big := strings.Repeat("QUFB", 20000)
	fake := consoletest.New(consoletest.Options{
		Handler: func(line string) string {
			switch {
			case strings.Contains(line, "data_query"):
				return "\r\n" + big
			case strings.HasPrefix(line, conf.DefaultPrefix+" sub callback"):
				return "\r\n" + encoded("DC01")
			}
			return ""
		},
	})
	c := newTestClient(t, fake)
	c.cfg.Console.MaxBufferSize = 64 * 1024
	require.NoError(t, c.Connect())
	defer func() { _ = c.Disconnect() }()

	_, err := c.Invoke(`return data_query("beaconlog")`, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, console.ErrBufferOverflow), err.Error())
	assert.False(t, errors.Is(err, ErrProtocol))
	assert.True(t, c.Connected())

	got, err := c.Invoke("return computer()", 0)
	require.NoError(t, err)
	assert.Equal(t, "DC01", got.Str())
}

func TestInvokeLargeResultWithinBuffer(t *testing.T) {
	value := strings.Repeat("x", 200)
	big := base64.StdEncoding.EncodeToString(longStringStream(strings.Repeat(value, 1000)))
	c, _ := connected(t, "\r\n"+big)

	got, err := c.Invoke(`return data_query("beaconlog")`, 0)
	require.NoError(t, err)
	assert.Len(t, got.Str(), 200*1000)
}

func TestSendAndCaptureText(t *testing.T) {
	fake := consoletest.New(consoletest.Options{
		Handler: func(line string) string {
			if line == "e return localip();" {
				return "\r\n10.0.0.7"
			}
			return ""
		},
	})
	c := newTestClient(t, fake)
	require.NoError(t, c.Connect())
	defer func() { _ = c.Disconnect() }()

	out, err := c.SendAndCaptureText("return localip()", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "\r\n\r\n10.0.0.7", out)

	_, err = c.SendAndCaptureText("return localip()", console.Literal("never printed"), 50*time.Millisecond)
	assert.ErrorIs(t, err, console.ErrTimeout)
	assert.True(t, c.Connected())
}

func TestSendFireAndForget(t *testing.T) {
	c, fake := connected(t, "")

	start := time.Now()
	require.NoError(t, c.SendFireAndForget(`elog("hello")`, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	lines := fake.Ptys()[0].Lines()
	assert.Equal(t, `e elog("hello");`, lines[len(lines)-1])
}

func TestNotConnected(t *testing.T) {
	c := newTestClient(t, consoletest.New(consoletest.Options{}))

	_, err := c.Invoke("return 1", 0)
	assert.ErrorIs(t, err, console.ErrNotConnected)
	assert.ErrorIs(t, c.SendFireAndForget("x", 0), console.ErrNotConnected)
	_, err = c.SendAndCaptureText("x", nil, 0)
	assert.ErrorIs(t, err, console.ErrNotConnected)

	assert.NoError(t, c.Disconnect())
	assert.NoError(t, c.Disconnect())
}

func TestConnectIsIdempotent(t *testing.T) {
	c, fake := connected(t, "")
	require.NoError(t, c.Connect())
	assert.Equal(t, 1, fake.Spawns())
}

func TestReconnectAfterFault(t *testing.T) {
	c, fake := connected(t, "\r\n"+encoded("ok"))

	fake.Ptys()[0].Exit()
	require.Eventually(t, func() bool { return !c.Connected() }, time.Second, 10*time.Millisecond)

	_, err := c.Invoke("return 1", 0)
	assert.ErrorIs(t, err, console.ErrNotConnected)

	require.NoError(t, c.Connect())
	assert.Equal(t, 2, fake.Spawns())
	got, err := c.Invoke("return 1", 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Str())
}

func TestConnectRetryReportsFailures(t *testing.T) {
	fake := consoletest.New(consoletest.Options{WithholdReady: true})
	c := newTestClient(t, fake)

	var mu sync.Mutex
	var attempts []int
	c.cfg.OnRetry = func(attempt int, err error) {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, attempt)
		assert.ErrorIs(t, err, console.ErrHandshake)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()
	err := c.ConnectRetry(ctx, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, console.ErrHandshake)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, attempts)
	assert.Equal(t, 1, attempts[0])
	assert.Equal(t, len(attempts), fake.Spawns())
	assert.Equal(t, 0, fake.Running())
}

func TestConnectRetrySucceeds(t *testing.T) {
	fake := consoletest.New(consoletest.Options{})
	c := newTestClient(t, fake)

	failures := 2
	var spawns int
	c.cfg.Console.Spawn = func(cmd interpreter.Command) (interpreter.Pty, error) {
		spawns++
		if spawns <= failures {
			return nil, errors.New("connection refused")
		}
		return fake.Spawn(cmd)
	}
	var retries int
	c.cfg.OnRetry = func(int, error) { retries++ }

	require.NoError(t, c.ConnectRetry(context.Background(), time.Millisecond))
	defer func() { _ = c.Disconnect() }()
	assert.Equal(t, failures, retries)
	assert.True(t, c.Connected())
}

func TestConnectRetryCancelled(t *testing.T) {
	c := newTestClient(t, consoletest.New(consoletest.Options{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.ConnectRetry(ctx, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Connected())
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
		found    bool
	}{
		{"empty", "", "", false},
		{"single line", "rO0ABXQABWhlbGxv", "rO0ABXQABWhlbGxv", true},
		{"crlf noise", "\r\nnoise here\r\nrO0ABXQAAmhp\r\n", "rO0ABXQAAmhp", true},
		{"one pad", "abc=", "abc=", true},
		{"two pad", "ab==", "ab==", true},
		{"bad length", "abcde", "", false},
		{"bad padding", "a===", "", false},
		{"url alphabet", "ab-_", "", false},
		{"embedded", "payload: rO0ABXQAAmhp", "", false},
		{"first wins", "AAAA\r\nBBBB", "AAAA", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPayload(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
