package csproj

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

const (
	DefaultMSBuildPath = "/usr/local/bin/msbuild"
	DefaultCscPath     = "/usr/local/bin/csc"
)

type BuildOptions struct {
	Platform      string
	Configuration string
	// Target is an msbuild target such as Rebuild, or a csc target such as winexe
	Target string
	// Output is the file csc writes, next to the source when empty
	Output string
}

// MSBuildArgs returns the msbuild arguments building file
func MSBuildArgs(file string, opts BuildOptions) []string {
	if opts.Platform == "" {
		opts.Platform = "x64"
	}
	if opts.Configuration == "" {
		opts.Configuration = "Release"
	}
	if opts.Target == "" {
		opts.Target = "Rebuild"
	}
	return []string{
		file,
		"/t:" + opts.Target,
		fmt.Sprintf("/p:Configuration=%s,Platform=%s", opts.Configuration, opts.Platform),
	}
}

// CscArgs returns the csc arguments compiling a single source file
func CscArgs(file string, opts BuildOptions) []string {
	if opts.Platform == "" {
		opts.Platform = "x64"
	}
	if opts.Target == "" {
		opts.Target = "winexe"
	}
	args := []string{file, "/t:" + opts.Target, "/platform:" + opts.Platform}
	if opts.Output != "" {
		args = append(args, "/out:"+opts.Output)
	}
	return args
}

// Builder runs the .NET compilers found at its paths
type Builder struct {
	MSBuildPath string
	CscPath     string
}

func NewBuilder() *Builder {
	return &Builder{MSBuildPath: DefaultMSBuildPath, CscPath: DefaultCscPath}
}

// MSBuild builds a solution or project and returns the compiler output
func (b *Builder) MSBuild(ctx context.Context, file string, opts BuildOptions) (string, error) {
	return run(ctx, b.MSBuildPath, MSBuildArgs(file, opts))
}

// Csc compiles a source file and returns the compiler output
func (b *Builder) Csc(ctx context.Context, file string, opts BuildOptions) (string, error) {
	return run(ctx, b.CscPath, CscArgs(file, opts))
}

func run(ctx context.Context, tool string, args []string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s failed: %w: %s", tool, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}
