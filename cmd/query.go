package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agbridge/bridge"
	"agbridge/pkg/aggressor"

	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluates a script expression and prints its value",
	Long: `Evaluates a script expression on the team server and prints
the returned value. The expression is the body of a function, so it
must return what should be printed, e.g.:

	agbridge eval 'return beacons()'`,
	Args:         cobra.ExactArgs(1),
	RunE:         runEval,
	SilenceUsage: true,
}

var beaconsCmd = &cobra.Command{
	Use:          "beacons",
	Short:        "Lists the beacons known to the team server",
	Args:         cobra.NoArgs,
	RunE:         runBeacons,
	SilenceUsage: true,
}

var listenersCmd = &cobra.Command{
	Use:          "listeners [name]",
	Short:        "Lists listener names, or shows the settings of one listener",
	Args:         cobra.MaximumNArgs(1),
	RunE:         runListeners,
	SilenceUsage: true,
}

// dataModels are the data models "data" can print
var dataModels = map[string]func(*aggressor.TeamServer) ([]aggressor.Record, error){
	"beacons":     (*aggressor.TeamServer).Beacons,
	"credentials": (*aggressor.TeamServer).Credentials,
	"hosts":       (*aggressor.TeamServer).Hosts,
	"pivots":      (*aggressor.TeamServer).Pivots,
	"sites":       (*aggressor.TeamServer).Sites,
	"targets":     (*aggressor.TeamServer).Targets,
	"users":       (*aggressor.TeamServer).Users,
}

var dataCmd = &cobra.Command{
	Use:          "data <" + strings.Join(modelNames(), "|") + ">",
	Short:        "Prints a team server data model",
	Args:         cobra.ExactArgs(1),
	ValidArgs:    modelNames(),
	RunE:         runData,
	SilenceUsage: true,
}

var beaconLogCmd = &cobra.Command{
	Use:          "beaconlog",
	Short:        "Prints the beacon log events kept by the team server",
	Args:         cobra.NoArgs,
	RunE:         runBeaconLog,
	SilenceUsage: true,
}

// Listeners flags
var stagelessOnly bool

func init() {
	rootCmd.AddCommand(evalCmd, beaconsCmd, listenersCmd, dataCmd, beaconLogCmd)

	listenersCmd.Flags().BoolVar(&stagelessOnly, "stageless", false, "Only lists listeners usable for stageless payloads")
}

func modelNames() []string {
	names := make([]string, 0, len(dataModels))
	for name := range dataModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runEval(cmd *cobra.Command, args []string) error {
	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		return b.Eval(args[0])
	})
}

func runBeacons(cmd *cobra.Command, args []string) error {
	return runData(cmd, []string{"beacons"})
}

func runData(cmd *cobra.Command, args []string) error {
	query, ok := dataModels[args[0]]
	if !ok {
		return fmt.Errorf("unknown data model %q, known: %s", args[0], strings.Join(modelNames(), ", "))
	}
	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		records, err := query(b.TeamServer())
		if err != nil {
			return err
		}
		return b.Print(records)
	})
}

func runListeners(cmd *cobra.Command, args []string) error {
	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		ts := b.TeamServer()
		if len(args) == 1 {
			info, err := ts.ListenerInfo(args[0])
			if err != nil {
				return err
			}
			return b.Print(info)
		}

		list := ts.ListenersLocal
		if stagelessOnly {
			list = ts.ListenersStageless
		}
		names, err := list()
		if err != nil {
			return err
		}
		return b.Print(names)
	})
}

func runBeaconLog(cmd *cobra.Command, args []string) error {
	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		entries, err := b.TeamServer().BeaconLog()
		if err != nil {
			return err
		}
		return b.Print(entries)
	})
}
