package cmd

import (
	"context"
	"time"

	"agbridge/bridge"
	"agbridge/pkg/conf"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <expression>",
	Short: "Evaluates an expression periodically",
	Long: `Evaluates a script expression every interval and prints each
value until interrupted. Failed invocations are logged and the
console is reconnected when it goes away.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runWatch,
	SilenceUsage: true,
}

// Watch flags
var interval time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&interval, "interval", conf.PollInterval, "Pause between evaluations")
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) error {
		return b.Watch(ctx, args[0], interval)
	})
}
