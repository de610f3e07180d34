package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agbridge/bridge"
	"agbridge/pkg/conf"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agbridge",
	Short: "agbridge - typed calls into a team server scripting console",
	Long: `agbridge drives the headless scripting console of a team server
and returns the values of script expressions as YAML or JSON.

Credentials not given as flags are read from the agbridge profile,
then from the connection profiles saved by the team server client.
A missing password is read from ` + conf.PasswordEnvVar + ` or asked for.`,
	SilenceUsage: true,
}

// Global flags
var (
	host        string
	port        int
	user        string
	password    string
	directory   string
	profilePath string
	verbose     string
	colorless   bool
	jsonLog     bool
	callerLog   bool
	output      string
	timeout     time.Duration
	retry       bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&host, "host", "t", "", "Team server host")
	pf.IntVarP(&port, "port", "P", 0, "Team server port (default 50050)")
	pf.StringVarP(&user, "user", "u", "", "Operator user, the console logs in with a suffix appended")
	pf.StringVarP(&password, "password", "p", "", "Team server password")
	pf.StringVarP(&directory, "dir", "j", "", "Directory holding agscript and "+conf.DefaultArtifact)
	pf.StringVar(&profilePath, "config", "", "Path of the agbridge profile (default "+conf.DefaultProfilePath()+")")
	pf.StringVar(&verbose, "verbose", "", "Adds verbosity [debug|info|warn|error|off]")
	pf.BoolVar(&colorless, "colorless", os.Getenv(conf.NoColorEnvVar) != "", "Disables logging colors")
	pf.BoolVar(&jsonLog, "json-log", false, "Enables JSON formatted logging")
	pf.StringVar(&output, "output", bridge.FormatYAML, "Output format [yaml|json]")
	pf.DurationVar(&timeout, "timeout", 0, "Wait for a console command (default "+conf.Timeout.String()+")")
	pf.BoolVar(&retry, "retry", false, "Retries connecting until the team server answers")
	if conf.Version == "development" {
		pf.BoolVar(&callerLog, "caller-log", false, "Display caller information in logs")
	}

	rootCmd.MarkFlagsMutuallyExclusive("json-log", "colorless")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Shows Binary Build info",
	Run: func(cmd *cobra.Command, args []string) {
		conf.PrintVersion()
	},
}

// newBridge builds a Bridge from the global flags
func newBridge(cmd *cobra.Command) (*bridge.Bridge, error) {
	return bridge.New(&bridge.Config{
		Host:            host,
		Port:            port,
		User:            user,
		Password:        password,
		Directory:       directory,
		ProfilePath:     profilePath,
		ProfileRequired: cmd.Flags().Changed("config"),
		Verbose:         verbose,
		Colorless:       colorless,
		JsonLog:         jsonLog,
		CallerLog:       callerLog,
		Output:          output,
		Timeout:         timeout,
		Retry:           retry,
		Out:             cmd.OutOrStdout(),
		LogOut:          cmd.ErrOrStderr(),
	})
}

// withBridge connects, runs fn and always disconnects. An interrupt cancels
// the context given to fn.
func withBridge(cmd *cobra.Command, fn func(ctx context.Context, b *bridge.Bridge) error) error {
	b, err := newBridge(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if cErr := b.Close(); cErr != nil {
			b.Warnf("Disconnect failed: %v", cErr)
		}
	}()
	return fn(ctx, b)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Error is already printed by the command, just exit
		os.Exit(1)
	}
}
