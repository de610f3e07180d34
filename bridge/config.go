package bridge

import (
	"fmt"
	"io"
	"os"
	"time"

	"agbridge/pkg/conf"
	"agbridge/pkg/credentials"
	"agbridge/pkg/interpreter"
	"agbridge/pkg/slog"
)

// Config holds what the command line sets. Zero values are taken from the
// profile file, then from the defaults.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	Directory string

	ProfilePath     string
	ProfileRequired bool

	Verbose   string
	Colorless bool
	JsonLog   bool
	CallerLog bool

	Output  string
	Timeout time.Duration
	Retry   bool

	// Out receives rendered values, stdout when nil
	Out io.Writer
	// LogOut receives log lines, stderr when nil
	LogOut io.Writer
	// Spawn replaces the pty spawner
	Spawn interpreter.SpawnFunc
	// Prompter asks for a missing password, the environment then the terminal when nil
	Prompter credentials.Prompter
}

// merge resolves every setting of c over the profile p
func (c *Config) merge(p *conf.Profile) {
	if c.Host == "" {
		c.Host = p.Host
	}
	if c.Port == 0 {
		c.Port = p.Port
	}
	if c.User == "" {
		c.User = p.User
	}
	if c.Password == "" {
		c.Password = p.Password
	}
	if c.Directory == "" {
		c.Directory = p.Directory
	}
	if c.Verbose == "" {
		c.Verbose = p.Verbose
	}
	if c.Timeout <= 0 {
		c.Timeout = p.Timeout
	}
	if c.Output == "" {
		c.Output = FormatYAML
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.LogOut == nil {
		c.LogOut = os.Stderr
	}
	if c.Prompter == nil {
		c.Prompter = credentials.EnvPrompter{
			Name: conf.PasswordEnvVar,
			Next: credentials.NewTerminalPrompter(),
		}
	}
}

// newLogger configures a logger the way every agbridge command uses it
func newLogger(c *Config) (*slog.Logger, error) {
	log := slog.NewLogger("Bridge")
	log.SetOutput(c.LogOut)

	if c.JsonLog {
		log.WithJSON(true)
	} else {
		log.WithColors(interpreter.IsColorOn() && !c.Colorless)
	}
	if c.CallerLog {
		log.WithCallerInfo(true)
	}
	if err := log.SetLevel(c.Verbose); err != nil {
		return nil, fmt.Errorf("wrong log level (%s): %w", c.Verbose, err)
	}
	return log, nil
}
