package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agbridge/pkg/aggressor"
	"agbridge/pkg/conf"
	"agbridge/pkg/console"
	"agbridge/pkg/credentials"
	"agbridge/pkg/rpc"
	"agbridge/pkg/slog"
)

// Bridge is a connected team server console ready to serve commands
type Bridge struct {
	*slog.Logger
	cfg     *Config
	profile *conf.Profile
	creds   credentials.Credentials
	client  *rpc.Client
	server  *aggressor.TeamServer
}

// New resolves the configuration and credentials, nothing is spawned yet
func New(cfg *Config) (*Bridge, error) {
	path := cfg.ProfilePath
	if path == "" {
		path = conf.DefaultProfilePath()
	}
	profile, err := conf.LoadProfile(path, cfg.ProfileRequired)
	if err != nil {
		return nil, err
	}
	cfg.merge(profile)

	if cfg.Output != FormatYAML && cfg.Output != FormatJSON {
		return nil, fmt.Errorf("unknown output format %q", cfg.Output)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	creds, err := credentials.Complete(credentials.Credentials{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
	}, credentials.NewFileResolver(profile.PropertiesFile), cfg.Prompter)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		Logger:  log,
		cfg:     cfg,
		profile: profile,
		creds:   creds,
	}
	b.client = rpc.New(rpc.Config{
		Console: b.consoleConfig(),
		OnRetry: func(attempt int, err error) {
			if errors.Is(err, console.ErrConfiguration) {
				b.Errorf("Attempt %d can not succeed without a configuration change: %v", attempt, err)
			}
		},
		Logger: log,
	})
	b.server = aggressor.New(b.client, log)
	b.server.Timeout = cfg.Timeout
	b.server.PayloadTimeout = b.profile.PayloadTimeout
	return b, nil
}

func (b *Bridge) consoleConfig() console.Config {
	return console.Config{
		Host:             b.creds.Host,
		Port:             b.creds.Port,
		User:             b.creds.ConsoleUser(b.profile.UserSuffix),
		Password:         b.creds.Password,
		Directory:        b.cfg.Directory,
		Launcher:         b.profile.Launcher,
		Artifact:         b.profile.Artifact,
		HandshakeTimeout: b.profile.HandshakeTimeout,
		CommandTimeout:   b.cfg.Timeout,
		MaxBufferSize:    b.profile.MaxOutput,
		Logger:           b.Logger,
		Spawn:            b.cfg.Spawn,
	}
}

// Connect starts the console. With Retry set it keeps trying every retry
// delay until ctx is done.
func (b *Bridge) Connect(ctx context.Context) error {
	b.Infof("Connecting to team server %s:%d as %s", b.creds.Host, b.creds.Port, b.creds.ConsoleUser(b.profile.UserSuffix))
	if b.cfg.Retry {
		return b.client.ConnectRetry(ctx, b.profile.RetryDelay)
	}
	return b.client.Connect()
}

func (b *Bridge) Close() error {
	return b.client.Disconnect()
}

func (b *Bridge) TeamServer() *aggressor.TeamServer {
	return b.server
}

// Credentials returns the resolved login, the console user suffix not applied
func (b *Bridge) Credentials() credentials.Credentials {
	return b.creds
}

// Print renders v in the configured output format
func (b *Bridge) Print(v interface{}) error {
	return Render(b.cfg.Out, b.cfg.Output, v)
}

// Eval invokes expression and prints its result
func (b *Bridge) Eval(expression string) error {
	v, err := b.server.Eval(expression)
	if err != nil {
		return err
	}
	return b.Print(v.Interface())
}

// Watch evaluates expression every interval and prints each result until
// ctx is done. A failed invocation is logged, the next one reconnects when
// the console went away.
func (b *Bridge) Watch(ctx context.Context, expression string, interval time.Duration) error {
	if interval <= 0 {
		interval = conf.PollInterval
	}
	for {
		if err := b.watchOnce(ctx, expression); err != nil {
			return err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (b *Bridge) watchOnce(ctx context.Context, expression string) error {
	if !b.client.Connected() {
		if err := b.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	v, err := b.server.Eval(expression)
	switch {
	case err == nil:
		return b.Print(v.Interface())
	case errors.Is(err, rpc.ErrProtocol), errors.Is(err, rpc.ErrDecode), errors.Is(err, console.ErrTimeout):
		b.WarnWith("Invocation failed", slog.F("expression", expression), slog.F("err", err))
		return nil
	case errors.Is(err, console.ErrNotConnected), errors.Is(err, console.ErrStreamClosed):
		b.WarnWith("Console went away, reconnecting on next poll", slog.F("err", err))
		return nil
	}
	return err
}
