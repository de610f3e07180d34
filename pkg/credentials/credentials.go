package credentials

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"agbridge/pkg/conf"

	"github.com/magiconair/properties"
)

var ErrIncomplete = errors.New("incomplete team server credentials")

const (
	profilePrefix = "connection.profiles."

	keyUser     = "user"
	keyPassword = "password"
	keyPort     = "port"
)

// Credentials identify the operator on a team server
type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
}

// ConsoleUser is the user the bridge logs in as. The suffix keeps it apart
// from the operator's own client session.
func (c Credentials) ConsoleUser(suffix string) string {
	if suffix == "" || strings.HasSuffix(c.User, suffix) {
		return c.User
	}
	return c.User + suffix
}

// Resolver looks up stored credentials for a host
type Resolver interface {
	Lookup(host string) (Credentials, bool, error)
}

// StaticResolver serves credentials from memory
type StaticResolver map[string]Credentials

func (s StaticResolver) Lookup(host string) (Credentials, bool, error) {
	c, ok := s[host]
	if ok {
		c.Host = host
	}
	return c, ok, nil
}

// FileResolver reads the connection profiles saved by the team server client
type FileResolver struct {
	Path string
}

func NewFileResolver(path string) *FileResolver {
	if path == "" {
		path = conf.DefaultPropertiesPath()
	}
	return &FileResolver{Path: path}
}

// Lookup returns the profile stored for host. A missing file is not an error.
func (f *FileResolver) Lookup(host string) (Credentials, bool, error) {
	if _, err := os.Stat(f.Path); errors.Is(err, os.ErrNotExist) {
		return Credentials{}, false, nil
	}
	profiles, err := LoadProfiles(f.Path)
	if err != nil {
		return Credentials{}, false, err
	}
	c, ok := profiles[host]
	return c, ok, nil
}

// LoadProfiles reads every connection profile of a properties file, keyed by host
func LoadProfiles(path string) (map[string]Credentials, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection profiles: %w", err)
	}
	return parseProfiles(p)
}

// ParseProfiles reads connection profiles from properties text
func ParseProfiles(text string) (map[string]Credentials, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	p, err := loader.LoadBytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection profiles: %w", err)
	}
	return parseProfiles(p)
}

func parseProfiles(p *properties.Properties) (map[string]Credentials, error) {
	profiles := make(map[string]Credentials)
	for _, key := range p.Keys() {
		name, ok := strings.CutPrefix(key, profilePrefix)
		if !ok {
			continue
		}
		// Hosts may contain dots, the attribute is the last element
		i := strings.LastIndexByte(name, '.')
		if i <= 0 {
			continue
		}
		host, attr := name[:i], name[i+1:]
		value, _ := p.Get(key)

		c := profiles[host]
		c.Host = host
		switch attr {
		case keyUser:
			c.User = value
		case keyPassword:
			c.Password = value
		case keyPort:
			port, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || port < 1 || port > 65535 {
				return nil, fmt.Errorf("invalid port %q for %s", value, host)
			}
			c.Port = port
		default:
			continue
		}
		profiles[host] = c
	}
	return profiles, nil
}

// Complete fills the values base is missing. Stored values never replace
// given ones. A password still missing afterwards is asked through prompter
// and a missing port falls back to the team server default.
func Complete(base Credentials, resolver Resolver, prompter Prompter) (Credentials, error) {
	c := base
	if c.Host == "" {
		return c, fmt.Errorf("%w: host is required", ErrIncomplete)
	}

	if resolver != nil && (c.User == "" || c.Password == "" || c.Port == 0) {
		stored, ok, err := resolver.Lookup(c.Host)
		if err != nil {
			return c, err
		}
		if ok {
			if c.User == "" {
				c.User = stored.User
			}
			if c.Password == "" {
				c.Password = stored.Password
			}
			if c.Port == 0 {
				c.Port = stored.Port
			}
		}
	}

	if c.User == "" {
		return c, fmt.Errorf("%w: no user for %s", ErrIncomplete, c.Host)
	}
	if c.Port == 0 {
		c.Port = conf.DefaultPort
	}
	if c.Password == "" {
		if prompter == nil {
			return c, fmt.Errorf("%w: no password for %s", ErrIncomplete, c.Host)
		}
		password, err := prompter.Prompt(fmt.Sprintf("Password for %s@%s: ", c.User, c.Host))
		if err != nil {
			return c, err
		}
		if password == "" {
			return c, fmt.Errorf("%w: empty password for %s", ErrIncomplete, c.Host)
		}
		c.Password = password
	}
	return c, nil
}
