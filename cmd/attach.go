package cmd

import (
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Opens an interactive team server console",
	Long: `Starts the headless console with the resolved credentials and
hands it the local terminal. Type quit to leave.`,
	Args:         cobra.NoArgs,
	RunE:         runAttach,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	b, err := newBridge(cmd)
	if err != nil {
		return err
	}
	return b.Attach()
}
