package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"agbridge/bridge"
	"agbridge/pkg/artifact"
	"agbridge/pkg/csproj"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <directory|solution|project>",
	Short: "Shows the build targets of C# projects",
	Long: `Shows output names, output types, configurations and debug types
of the C# projects found in a directory of solutions, a .sln file or
a .csproj file. With --artifacts, compiled outputs found in that
directory are reported with their hashes, output type and PDB path.
No team server connection is made.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runInspect,
	SilenceUsage: true,
}

var artifactCmd = &cobra.Command{
	Use:          "artifact <file>...",
	Short:        "Shows hashes, output type and PDB path of files",
	Args:         cobra.MinimumNArgs(1),
	RunE:         runArtifact,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:          "build <solution|project|source>",
	Short:        "Builds a solution or project with msbuild, or a source file with csc",
	Args:         cobra.ExactArgs(1),
	RunE:         runBuild,
	SilenceUsage: true,
}

// Inspect flags
var artifactsDir string

// Build flags
var (
	bPlatform string
	bConfig   string
	bTarget   string
	bOut      string
	bMSBuild  string
	bCsc      string
)

func init() {
	rootCmd.AddCommand(inspectCmd, artifactCmd, buildCmd)

	inspectCmd.Flags().StringVar(&artifactsDir, "artifacts", "", "Directory holding the compiled outputs")

	buildCmd.Flags().StringVar(&bPlatform, "platform", "x64", "Target platform")
	buildCmd.Flags().StringVar(&bConfig, "configuration", "Release", "Build configuration (msbuild)")
	buildCmd.Flags().StringVar(&bTarget, "target", "", "msbuild target (default Rebuild) or csc target (default winexe)")
	buildCmd.Flags().StringVar(&bOut, "out", "", "Output file of csc, reported once compiled")
	buildCmd.Flags().StringVar(&bMSBuild, "msbuild", csproj.DefaultMSBuildPath, "Path of msbuild")
	buildCmd.Flags().StringVar(&bCsc, "csc", csproj.DefaultCscPath, "Path of csc")
}

// inspection is what inspect prints per project
type inspection struct {
	Path           string                       `json:"path" yaml:"path"`
	OutputName     string                       `json:"output_name" yaml:"output_name"`
	OutputType     string                       `json:"output_type" yaml:"output_type"`
	Configurations map[string][]string          `json:"configurations" yaml:"configurations"`
	DebugTypes     map[string]map[string]string `json:"debug_types" yaml:"debug_types"`
	Artifact       *artifact.Report             `json:"artifact,omitempty" yaml:"artifact,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	projects, err := csproj.Inspect(args[0])
	if err != nil {
		return err
	}
	out := make([]inspection, 0, len(projects))
	for _, p := range projects {
		i := inspection{
			Path:           p.Path,
			OutputName:     p.OutputName(),
			OutputType:     p.OutputType,
			Configurations: p.Configurations,
			DebugTypes:     p.DebugTypes,
		}
		if artifactsDir != "" && i.OutputName != "" {
			compiled := filepath.Join(artifactsDir, i.OutputName)
			if _, err := os.Stat(compiled); err == nil {
				report, err := artifact.Inspect(compiled)
				if err != nil {
					return err
				}
				i.Artifact = &report
			}
		}
		out = append(out, i)
	}
	return bridge.Render(cmd.OutOrStdout(), output, out)
}

func runArtifact(cmd *cobra.Command, args []string) error {
	reports := make([]artifact.Report, 0, len(args))
	for _, path := range args {
		report, err := artifact.Inspect(path)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}
	return bridge.Render(cmd.OutOrStdout(), output, reports)
}

func runBuild(cmd *cobra.Command, args []string) error {
	b := &csproj.Builder{MSBuildPath: bMSBuild, CscPath: bCsc}
	opts := csproj.BuildOptions{Platform: bPlatform, Configuration: bConfig, Target: bTarget, Output: bOut}

	build := b.MSBuild
	kind, err := csproj.KindOf(args[0])
	switch {
	case errors.Is(err, csproj.ErrUnsupported):
		build = b.Csc
	case err != nil:
		return err
	case kind == csproj.Directory:
		return fmt.Errorf("%s is a directory, give a solution or a project", args[0])
	}
	out, err := build(cmd.Context(), args[0], opts)
	_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
	if err != nil || bOut == "" {
		return err
	}
	report, err := artifact.Inspect(bOut)
	if err != nil {
		return err
	}
	return bridge.Render(cmd.OutOrStdout(), output, report)
}
