package cmd

import (
	"context"
	"fmt"
	"strings"

	"agbridge/bridge"
	"agbridge/pkg/aggressor"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <message>",
	Short: "Writes a message to the team server event log",
	Long: `Writes a message to the team server event log, or to the
log of one beacon when --beacon is given.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runLog,
	SilenceUsage: true,
}

var archivesCmd = &cobra.Command{
	Use:          "archives <iocs|email-iocs|emails|external|strings>",
	Short:        "Prints event log entries written by agbridge",
	Args:         cobra.ExactArgs(1),
	ValidArgs:    []string{"iocs", "email-iocs", "emails", "external", "strings"},
	RunE:         runArchives,
	SilenceUsage: true,
}

// Log flags
var (
	logType     string
	logBeacon   string
	logAttackID string
)

var eventTypes = map[string]aggressor.EventType{
	"string":   aggressor.StringLog,
	"ioc":      aggressor.IndicatorOfCompromise,
	"external": aggressor.ExternalAction,
}

func init() {
	rootCmd.AddCommand(logCmd, archivesCmd)

	logCmd.Flags().StringVar(&logType, "type", "string", "Event type [string|ioc|external]")
	logCmd.Flags().StringVar(&logBeacon, "beacon", "", "Beacon id whose log receives the message")
	logCmd.Flags().StringVar(&logAttackID, "attack-id", "", "MITRE ATT&CK technique, tasks the beacon instead of logging")

	logCmd.MarkFlagsMutuallyExclusive("type", "beacon")
}

func runLog(cmd *cobra.Command, args []string) error {
	kind, ok := eventTypes[logType]
	if !ok {
		return fmt.Errorf("unknown event type %q", logType)
	}
	if logAttackID != "" && logBeacon == "" {
		return fmt.Errorf("flag --attack-id requires --beacon")
	}

	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		ts := b.TeamServer()
		switch {
		case logAttackID != "":
			return ts.TaskBeacon(logBeacon, args[0], logAttackID)
		case logBeacon != "":
			return ts.LogToBeaconLog(logBeacon, args[0])
		}
		return ts.LogToEventLog(args[0], kind)
	})
}

func runArchives(cmd *cobra.Command, args []string) error {
	queries := map[string]func(*aggressor.TeamServer) ([]string, error){
		"iocs":       (*aggressor.TeamServer).IoCs,
		"email-iocs": (*aggressor.TeamServer).EmailIoCs,
		"emails":     (*aggressor.TeamServer).EmailLogs,
		"external":   (*aggressor.TeamServer).ExternalActions,
		"strings":    (*aggressor.TeamServer).StringLogs,
	}
	query, ok := queries[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown archive filter %q", args[0])
	}

	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		entries, err := query(b.TeamServer())
		if err != nil {
			return err
		}
		return b.Print(entries)
	})
}
