package aggressor

import (
	"fmt"
	"path/filepath"
	"strconv"

	"agbridge/pkg/conf"
	"agbridge/pkg/script"
	"agbridge/pkg/slog"
)

type HostOptions struct {
	// Site is the host name or address served, the team server local IP when empty
	Site        string
	Port        int
	URI         string
	MimeType    string
	Description string
	SSL         bool
}

func (o HostOptions) withDefaults() HostOptions {
	if o.Port == 0 {
		o.Port = 80
	}
	if o.URI == "" {
		o.URI = "/hosted.txt"
	}
	if o.MimeType == "" {
		o.MimeType = "text/plain"
	}
	if o.Description == "" {
		o.Description = "Autohosted File"
	}
	return o
}

// HostFile serves the local file at path through the team server sites and
// returns its URL. A page already hosted on the same site and URI is replaced.
func (t *TeamServer) HostFile(path string, opts HostOptions) (string, error) {
	opts = opts.withDefaults()

	// localip() is evaluated by the console when the address is unknown here
	site := "localip()"
	host := opts.Site
	if host == "" {
		ip, err := t.LocalIP()
		if err != nil {
			return "", err
		}
		host = ip
	}
	if host != "" {
		site = script.Quote(host)
	}

	sites, err := t.Sites()
	if err != nil {
		return "", err
	}
	for _, s := range sites {
		if s["Type"] == "page" && s["Host"] == host && s["URI"] == opts.URI {
			t.log.DebugWith("Replacing hosted page", slog.F("host", host), slog.F("uri", opts.URI))
			if err := t.KillHostedFile(opts.Port, opts.URI); err != nil {
				return "", err
			}
		}
	}

	scheme := "http"
	if opts.SSL {
		scheme = "https"
	}
	link := fmt.Sprintf("%s://%s:%d%s", scheme, host, opts.Port, opts.URI)

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	cmd := script.Flatten(fmt.Sprintf(`
		$handle = openf(%s);
		$content = readb($handle, -1);
		closef($handle);
		site_host(%s, %d, %s, $content, %s, %s, %s);
		`,
		script.Quote(abs),
		site, opts.Port, script.Quote(opts.URI), script.Quote(opts.MimeType),
		script.Quote(opts.Description), strconv.FormatBool(opts.SSL)))

	if err := t.caller.SendFireAndForget(cmd, conf.SettleHostFile); err != nil {
		return "", err
	}
	t.log.InfoWith("Hosted file", slog.F("path", abs), slog.F("url", link))
	return link, nil
}

// KillHostedFile stops serving the page bound to port and uri
func (t *TeamServer) KillHostedFile(port int, uri string) error {
	return t.caller.SendFireAndForget(fmt.Sprintf("site_kill(%d, %s)", port, script.Quote(uri)), conf.SettleLog)
}
