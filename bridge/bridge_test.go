package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"agbridge/pkg/conf"
	"agbridge/pkg/console/consoletest"
	"agbridge/pkg/credentials"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promptFunc func(string) (string, error)

func (f promptFunc) Prompt(label string) (string, error) { return f(label) }

// syncBuffer is written by the watch loop and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func stringPayload(s string) string {
	b := append([]byte{0xAC, 0xED, 0x00, 0x05, 0x74, 0x00, byte(len(s))}, s...)
	return base64.StdEncoding.EncodeToString(b)
}

// testConfig writes an install directory and a profile, the returned
// Config points at both
func testConfig(t *testing.T, profile string) *Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, conf.DefaultArtifact), nil, 0o600))

	home := t.TempDir()
	profile += "properties_file: " + filepath.Join(home, "absent.prop") + "\n"
	profilePath := filepath.Join(home, "agbridge.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte(profile), 0o600))

	return &Config{
		Directory:   dir,
		ProfilePath: profilePath,
		Verbose:     "off",
		Out:         &bytes.Buffer{},
		LogOut:      &bytes.Buffer{},
		Prompter: promptFunc(func(string) (string, error) {
			t.Fatal("unexpected password prompt")
			return "", nil
		}),
	}
}

func TestNewFromProfile(t *testing.T) {
	cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: secret\nport: 40050\n")

	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, credentials.Credentials{Host: "10.0.0.5", Port: 40050, User: "neo", Password: "secret"}, b.Credentials())

	cmd := b.AttachCommand()
	assert.Equal(t, filepath.Join(cfg.Directory, conf.DefaultLauncher), cmd.Path)
	assert.Equal(t, []string{"10.0.0.5", "40050", "neo_striker", "secret"}, cmd.Args)
	assert.Equal(t, cfg.Directory, cmd.Dir)
}

func TestFlagsOverrideProfile(t *testing.T) {
	cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: secret\nuser_suffix: _bot\n")
	cfg.Host = "10.0.0.6"
	cfg.User = "trinity"

	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, credentials.Credentials{Host: "10.0.0.6", Port: conf.DefaultPort, User: "trinity", Password: "secret"}, b.Credentials())
	assert.Equal(t, "trinity_bot", b.AttachCommand().Args[2])
}

func TestMissingPasswordIsPrompted(t *testing.T) {
	cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\n")
	cfg.Prompter = promptFunc(func(string) (string, error) { return "typed", nil })

	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "typed", b.Credentials().Password)
}

func TestNewErrors(t *testing.T) {
	cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: x\n")
	cfg.Output = "xml"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: x\n")
	cfg.Verbose = "loud"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, "password: x\n")
	_, err = New(cfg)
	assert.ErrorIs(t, err, credentials.ErrIncomplete)

	cfg = testConfig(t, "")
	cfg.ProfilePath = filepath.Join(t.TempDir(), "absent.yaml")
	cfg.ProfileRequired = true
	_, err = New(cfg)
	assert.Error(t, err)
}

func connectedBridge(t *testing.T, cfg *Config, payload string) *Bridge {
	t.Helper()
	fake := consoletest.New(consoletest.Options{
		Handler: func(line string) string {
			if strings.HasPrefix(line, conf.DefaultPrefix+" sub callback") {
				return "\r\n" + payload
			}
			return ""
		},
	})
	cfg.Spawn = fake.Spawn

	b, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestEvalOutput(t *testing.T) {
	tests := []struct {
		output   string
		expected string
	}{
		{FormatYAML, "DC01\n"},
		{FormatJSON, "\"DC01\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: secret\n")
			cfg.Output = tt.output
			out := &bytes.Buffer{}
			cfg.Out = out

			b := connectedBridge(t, cfg, stringPayload("DC01"))
			require.NoError(t, b.Eval("return computer()"))
			assert.Equal(t, tt.expected, out.String())
		})
	}
}

func TestWatchPollsUntilCancelled(t *testing.T) {
	cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: secret\n")
	out := &syncBuffer{}
	cfg.Out = out
	b := connectedBridge(t, cfg, stringPayload("tick"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Watch(ctx, "return 1", 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "tick") >= 3
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchSurvivesBadOutput(t *testing.T) {
	cfg := testConfig(t, "host: 10.0.0.5\nuser: neo\npassword: secret\n")
	out := &bytes.Buffer{}
	cfg.Out = out
	b := connectedBridge(t, cfg, "warning: unknown function")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, b.Watch(ctx, "return nope()", 5*time.Millisecond))
	assert.Empty(t, out.String())
}

func TestRender(t *testing.T) {
	v := map[string]interface{}{
		"name":  "http",
		"bytes": []byte{1, 2, 3},
		"list":  []interface{}{int64(1), []byte("hi")},
	}

	var yamlOut bytes.Buffer
	require.NoError(t, Render(&yamlOut, FormatYAML, v))
	assert.Contains(t, yamlOut.String(), "bytes: AQID\n")
	assert.Contains(t, yamlOut.String(), "- aGk=\n")
	assert.Contains(t, yamlOut.String(), "name: http\n")

	var jsonOut bytes.Buffer
	require.NoError(t, Render(&jsonOut, FormatJSON, v))
	assert.Contains(t, jsonOut.String(), `"bytes": "AQID"`)

	assert.Error(t, Render(&jsonOut, "xml", v))
}

func TestParseExtensions(t *testing.T) {
	got, err := ParseExtensions("exe, dll,bin")
	require.NoError(t, err)
	assert.Equal(t, []string{"exe", "dll", "bin"}, got)

	all, err := ParseExtensions("all")
	require.NoError(t, err)
	assert.Len(t, all, 7)

	_, err = ParseExtensions("exe,jar")
	assert.Error(t, err)
}
