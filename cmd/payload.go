package cmd

import (
	"context"
	"fmt"
	"strings"

	"agbridge/bridge"
	"agbridge/pkg/aggressor"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var payloadsCmd = &cobra.Command{
	Use:   "payloads",
	Short: "Generates stageless payloads for the team server listeners",
	Long: `Generates stageless payloads for every stageless listener, or
for the one given with --listener, and writes them to the output
directory as <listener>.<arch>.<type>. The path and hashes of every
written file are printed.`,
	Args:         cobra.NoArgs,
	RunE:         runPayloads,
	SilenceUsage: true,
}

var hostCmd = &cobra.Command{
	Use:          "host <file>",
	Short:        "Hosts a local file on the team server web server",
	Args:         cobra.ExactArgs(1),
	RunE:         runHost,
	SilenceUsage: true,
}

var unhostCmd = &cobra.Command{
	Use:          "unhost",
	Short:        "Stops hosting a page",
	Args:         cobra.NoArgs,
	RunE:         runUnhost,
	SilenceUsage: true,
}

// Payload flags
var (
	pOutputDir  string
	pListener   string
	pArch       string
	pTypes      string
	pExit       string
	pCallMethod string
	pScript     string
)

// Host flags
var (
	hSite        string
	hPort        int
	hURI         string
	hMimeType    string
	hDescription string
	hSSL         bool
)

func init() {
	rootCmd.AddCommand(payloadsCmd, hostCmd, unhostCmd)

	payloadsCmd.Flags().StringVarP(&pOutputDir, "payload-path", "o", "output/payloads", "Where to save generated payloads")
	payloadsCmd.Flags().StringVarP(&pListener, "listener", "l", "", "Only generates payloads for this listener")
	payloadsCmd.Flags().StringVarP(&pArch, "arch", "a", "both", "Payload architecture [x64|x86|both]")
	payloadsCmd.Flags().StringVar(&pTypes, "payload-types", "exe,dll,bin",
		"Comma separated payload types ["+strings.Join(aggressor.Extensions(), ",")+"] or all")
	payloadsCmd.Flags().StringVarP(&pExit, "exit", "e", "process", "Payload exit method [thread|process]")
	payloadsCmd.Flags().StringVarP(&pCallMethod, "call-method", "c", "", "Payload call method [direct|indirect|none], empty for servers before 4.8")
	payloadsCmd.Flags().StringVar(&pScript, "script", "", "Aggressor script loaded before generating")

	addSiteFlags(hostCmd.Flags())
	addSiteFlags(unhostCmd.Flags())
	hostCmd.Flags().StringVar(&hSite, "site", "", "Host name of the site (default team server local IP)")
	hostCmd.Flags().StringVar(&hMimeType, "mime-type", "text/plain", "Content type of the served file")
	hostCmd.Flags().StringVar(&hDescription, "description", "Autohosted File", "Description shown in the sites list")
	hostCmd.Flags().BoolVar(&hSSL, "ssl", false, "Serves the file over https")
}

func runPayloads(cmd *cobra.Command, args []string) error {
	var arches []string
	switch pArch {
	case "both":
		arches = []string{"x86", "x64"}
	case "x86", "x64":
		arches = []string{pArch}
	default:
		return fmt.Errorf("unknown architecture %q", pArch)
	}
	exts, err := bridge.ParseExtensions(pTypes)
	if err != nil {
		return err
	}

	// Exit is only understood together with a call method
	callMethod := capitalize(pCallMethod)
	exit := pExit
	if callMethod == "" {
		exit = ""
	}

	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		written, err := b.GeneratePayloads(bridge.PayloadJob{
			Listener:   pListener,
			Arches:     arches,
			Extensions: exts,
			OutputDir:  pOutputDir,
			Exit:       exit,
			CallMethod: callMethod,
			Script:     pScript,
		})
		if err != nil {
			return err
		}
		return b.Print(written)
	})
}

// addSiteFlags binds the flags identifying a hosted page
func addSiteFlags(fs *pflag.FlagSet) {
	fs.IntVar(&hPort, "site-port", 80, "Web server port")
	fs.StringVar(&hURI, "uri", "/hosted.txt", "Path the file is served on")
}

// capitalize turns a call method flag into the name the team server expects
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func runHost(cmd *cobra.Command, args []string) error {
	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		link, err := b.TeamServer().HostFile(args[0], aggressor.HostOptions{
			Site:        hSite,
			Port:        hPort,
			URI:         hURI,
			MimeType:    hMimeType,
			Description: hDescription,
			SSL:         hSSL,
		})
		if err != nil {
			return err
		}
		return b.Print(link)
	})
}

func runUnhost(cmd *cobra.Command, args []string) error {
	return withBridge(cmd, func(_ context.Context, b *bridge.Bridge) error {
		return b.TeamServer().KillHostedFile(hPort, hURI)
	})
}
