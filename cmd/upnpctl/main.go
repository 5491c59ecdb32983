// Upnpctl is a UPnP control point for the command line.
//
// It discovers devices with SSDP, lists their services and actions from
// the published descriptions, and invokes actions over SOAP. The igd
// commands wrap the Internet Gateway Device actions used for NAT port
// mapping.
//
// Usage:
//
//	upnpctl [command] [flags]
//
// See 'upnpctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/config"
	"github.com/muurk/upnpctl/internal/logging"
	"github.com/muurk/upnpctl/internal/ui"
	"github.com/muurk/upnpctl/internal/upnp"
	"github.com/muurk/upnpctl/internal/version"
)

// Global flags
var (
	location     string
	deviceKey    string
	timeout      time.Duration
	httpTimeout  time.Duration
	outputFormat string
	logLevel     string
	ifaceName    string
	noSave       bool
)

// Set up in PersistentPreRunE
var (
	registry *config.Registry
	printer  = ui.NewPrinter(os.Stdout, ui.FormatDetailed)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		err = printer.Err()
	}
	stop()
	logging.Sync()

	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "upnpctl",
	Short: "UPnP control point",
	Long: `A command line UPnP control point.

Discovers devices with SSDP, shows their services and actions, and invokes
actions over SOAP. The igd commands manage NAT port mappings on an
Internet Gateway Device.

Commands that talk to one device use --location when given, then --device
(a USN, uuid or host remembered from an earlier discover), and otherwise
search for the single Internet Gateway Device on the network.`,
	Version:           version.Version,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&location, "location", "", "Device description URL (skips discovery)")
	flags.StringVar(&deviceKey, "device", "", "Remembered device: USN, uuid or host from a previous discover")
	flags.DurationVar(&timeout, "timeout", 0, "Discovery window (default from config, 2s)")
	flags.DurationVar(&httpTimeout, "http-timeout", 10*time.Second, "Timeout for each HTTP request to a device")
	flags.StringVar(&outputFormat, "format", string(ui.FormatDetailed), "Output format (detailed, compact, json)")
	flags.StringVar(&logLevel, "log-level", "", "Log level on stderr (debug, info, warn, error; default $"+logging.LogLevelEnvVar+")")
	flags.StringVar(&ifaceName, "interface", "", "Network interface for the multicast search")
	flags.BoolVar(&noSave, "no-save", false, "Do not record discovered devices in the config file")

	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	format, err := ui.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	printer = ui.NewPrinter(os.Stdout, format)

	registry, err = config.LoadRegistry()
	if err != nil {
		// A broken config file must not make the tool unusable
		logging.Warn("Ignoring config file", zap.Error(err))
		registry = config.NewRegistry()
		noSave = true
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("upnpctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// reportError prints err with any troubleshooting advice for it
func reportError(err error) {
	title := "Command failed"
	if kind := upnp.KindOf(err); kind != 0 {
		title = kind.String()
	}
	printer.PrintError(title, err, hintLines(err))
}

// hintLines splits upnp.Hint into the bullet list the result box expects
func hintLines(err error) []string {
	hint := upnp.Hint(err)
	if hint == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(hint, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
