package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile holds the connection settings agbridge reads from its YAML file.
// Command line flags override every value.
type Profile struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	Directory        string        `yaml:"directory"`
	Launcher         string        `yaml:"launcher"`
	Artifact         string        `yaml:"artifact"`
	UserSuffix       string        `yaml:"user_suffix"`
	PropertiesFile   string        `yaml:"properties_file"`
	Timeout          time.Duration `yaml:"timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	PayloadTimeout   time.Duration `yaml:"payload_timeout"`
	MaxOutput        int           `yaml:"max_output"`
	Verbose          string        `yaml:"verbose"`
}

// DefaultProfile returns a Profile populated with default values
func DefaultProfile() *Profile {
	return &Profile{
		Directory:        "./",
		Launcher:         DefaultLauncher,
		Artifact:         DefaultArtifact,
		UserSuffix:       DefaultUserSuffix,
		PropertiesFile:   DefaultPropertiesPath(),
		Timeout:          Timeout,
		HandshakeTimeout: HandshakeTimeout,
		RetryDelay:       RetryDelay,
		PayloadTimeout:   PayloadTimeout,
		MaxOutput:        MaxBufferSize,
		Verbose:          "info",
	}
}

// LoadProfile reads path over the defaults. A missing file is only an error
// when required is true.
func LoadProfile(path string, required bool) (*Profile, error) {
	p := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return p, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if p.Port < 0 || p.Port > 65535 {
		return nil, fmt.Errorf("port (%d) out of range", p.Port)
	}
	if p.Timeout <= 0 || p.HandshakeTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}
	if p.RetryDelay < 0 {
		return nil, fmt.Errorf("retry_delay must not be negative")
	}

	return p, nil
}
