package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agbridge/pkg/aggressor"
	"agbridge/pkg/artifact"
	"agbridge/pkg/slog"
)

// PayloadJob describes a batch of stageless payloads to write to disk
type PayloadJob struct {
	// Listener restricts the batch to one listener, every stageless listener when empty
	Listener string
	Arches   []string
	// Extensions are keys of aggressor.ArtifactExtensions
	Extensions []string
	OutputDir  string
	Exit       string
	CallMethod string
	// Script is loaded before generating, when set
	Script string
}

// ParseExtensions splits a comma separated list, "all" selects every known
// extension. Unknown extensions are an error.
func ParseExtensions(list string) ([]string, error) {
	if list == "all" {
		return aggressor.Extensions(), nil
	}
	var exts []string
	for _, ext := range strings.Split(list, ",") {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if _, ok := aggressor.ArtifactExtensions[ext]; !ok {
			return nil, fmt.Errorf("unknown payload type %q, known: %s", ext, strings.Join(aggressor.Extensions(), ","))
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// GeneratePayloads writes every payload of job and returns a report with
// the hashes of every written file
func (b *Bridge) GeneratePayloads(job PayloadJob) ([]artifact.Report, error) {
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", job.OutputDir, err)
	}
	if job.Script != "" {
		if err := b.server.LoadScript(job.Script); err != nil {
			return nil, err
		}
	}

	listeners, err := b.server.ListenersStageless()
	if err != nil {
		return nil, err
	}

	var written []artifact.Report
	for _, listener := range listeners {
		if job.Listener != "" && !strings.EqualFold(listener, job.Listener) {
			continue
		}
		b.InfoWith("Creating stageless payloads", slog.F("listener", listener))
		for _, arch := range job.Arches {
			opts := aggressor.PayloadOptions{
				X64:        arch == "x64",
				Exit:       job.Exit,
				CallMethod: job.CallMethod,
			}
			for _, ext := range job.Extensions {
				payload, err := b.server.GeneratePayload(listener, aggressor.ArtifactExtensions[ext], opts)
				if err != nil {
					return written, err
				}
				path := filepath.Join(job.OutputDir, aggressor.PayloadName(listener, opts.X64, ext))
				if err := os.WriteFile(path, payload, 0o644); err != nil {
					return written, fmt.Errorf("failed to write %s: %w", path, err)
				}
				report, err := artifact.Inspect(path)
				if err != nil {
					return written, err
				}
				b.DebugWith("Wrote payload",
					slog.F("path", path),
					slog.F("bytes", len(payload)),
					slog.F("sha256", report.SHA256))
				written = append(written, report)
			}
		}
	}
	return written, nil
}
