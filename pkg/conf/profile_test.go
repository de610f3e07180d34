package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agbridge.yaml")
	content := `host: 10.0.0.5
port: 50051
user: neo
directory: /opt/cobaltstrike
timeout: 45s
handshake_timeout: 10s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path, true)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.Host != "10.0.0.5" || p.Port != 50051 || p.User != "neo" {
		t.Errorf("Unexpected connection values: %+v", p)
	}
	if p.Timeout != 45*time.Second || p.HandshakeTimeout != 10*time.Second {
		t.Errorf("Unexpected timeouts: %v %v", p.Timeout, p.HandshakeTimeout)
	}
	// Untouched keys keep their defaults
	if p.Launcher != DefaultLauncher || p.RetryDelay != RetryDelay {
		t.Errorf("Defaults lost: %+v", p)
	}
	if p.PayloadTimeout != PayloadTimeout || p.MaxOutput != MaxBufferSize {
		t.Errorf("Unexpected limits: %v %d", p.PayloadTimeout, p.MaxOutput)
	}
}

func TestLoadProfileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	p, err := LoadProfile(path, false)
	if err != nil {
		t.Fatalf("Optional profile should not fail: %v", err)
	}
	if p.Artifact != DefaultArtifact {
		t.Errorf("Expected defaults, got %+v", p)
	}

	if _, err := LoadProfile(path, true); err == nil {
		t.Error("Expected error for required missing profile")
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "host: [unclosed"},
		{"bad port", "port: 70000"},
		{"zero timeout", "timeout: 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "agbridge.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadProfile(path, true); err == nil {
				t.Errorf("Expected error for %q", tt.content)
			}
		})
	}
}
