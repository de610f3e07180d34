package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"direct":   "Direct",
		"INDIRECT": "Indirect",
		"none":     "None",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, capitalize(input), input)
	}
}

func TestModelNames(t *testing.T) {
	assert.Equal(t, []string{"beacons", "credentials", "hosts", "pivots", "sites", "targets", "users"}, modelNames())
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "Runner.csproj")
	require.NoError(t, os.WriteFile(project, []byte(`<Project>
  <PropertyGroup>
    <OutputType>WinExe</OutputType>
    <AssemblyName>Runner</AssemblyName>
  </PropertyGroup>
</Project>`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"inspect", "--output", "json", project})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"output_name": "Runner.exe"`)
	assert.Contains(t, out.String(), `"output_type": "WinExe"`)
}

func TestInspectWithArtifacts(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "Runner.csproj")
	require.NoError(t, os.WriteFile(project, []byte(`<Project>
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <AssemblyName>Runner</AssemblyName>
  </PropertyGroup>
</Project>`), 0o644))
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "Runner.exe"), []byte("abc"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"inspect", "--output", "json", "--artifacts", bin, project})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		artifactsDir = ""
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"sha256": "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"`)
	assert.Contains(t, out.String(), `"md5": "900150983cd24fb0d6963f7d28e17f72"`)
}

func TestArtifactCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http.x64.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"artifact", "--output", "yaml", path})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "sha1: a9993e364706816aba3e25717850c26c9cd0d89d")
	assert.NotContains(t, out.String(), "output_type")
}

func TestBuildRejectsDirectory(t *testing.T) {
	rootCmd.SetArgs([]string{"build", t.TempDir()})
	rootCmd.SetErr(&bytes.Buffer{})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetErr(nil)
	}()
	assert.Error(t, rootCmd.Execute())
}
