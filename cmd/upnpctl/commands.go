package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/upnpctl/internal/ui"
	"github.com/muurk/upnpctl/internal/upnp"
)

// Command flags
var (
	searchTarget  string
	filterExprs   []string
	headerExprs   []string
	describe      bool
	serviceName   string
	argExprs      []string
	showVariables bool
	showActions   bool
)

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(templatesCmd)
}

// discoverCmd runs an SSDP search
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search the network for UPnP devices",
	Long: `Send one SSDP M-SEARCH and list every device that answers within the
discovery window.

Results can be narrowed with --filter. Supported filters are host, port and
header.<Name>; a device matches when it satisfies every filter.
Discovered devices are remembered in the config file and can be used by
later commands with --device.`,
	Example: `  # Everything that answers in 2 seconds
  upnpctl discover

  # Only Internet Gateway Devices, waiting 5 seconds
  upnpctl discover --target urn:schemas-upnp-org:device:InternetGatewayDevice:1 --timeout 5s

  # Devices on one host, with their friendly names
  upnpctl discover --filter host=192.168.1.1 --describe

  # Match a response header exactly
  upnpctl discover --filter 'header.Server=Linux/3.14 UPnP/1.0 miniupnpd/2.1'`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&searchTarget, "target", "", "Search target (ST header; default from config, ssdp:all)")
	discoverCmd.Flags().StringArrayVar(&filterExprs, "filter", nil, "Filter as key=value (host, port, header.<Name>); repeatable")
	discoverCmd.Flags().StringArrayVar(&headerExprs, "header", nil, "Extra M-SEARCH header as Name=value; repeatable")
	discoverCmd.Flags().BoolVar(&describe, "describe", false, "Fetch each device description to show its friendly name")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	filters, err := upnp.ParseFilters(filterExprs)
	if err != nil {
		return err
	}
	headers, err := parseHeaders(headerExprs)
	if err != nil {
		return err
	}

	s, err := newSession(registry)
	if err != nil {
		return err
	}

	target := searchTarget
	if target == "" && headerValue(headers, "ST", "") == "" && s.cfg.Discovery != nil {
		target = s.cfg.Discovery.SearchTarget
	}
	if target != "" {
		for k := range headers {
			if strings.EqualFold(k, "ST") {
				delete(headers, k)
			}
		}
		headers["ST"] = target
	}

	printer.PrintHeader("Discovery", "upnpctl discover", map[string]string{
		"Target": headerValue(headers, "ST", "ssdp:all"),
		"Window": s.wait().String(),
	})

	devices, err := s.discover(ctx, headers)
	if err != nil {
		return err
	}
	devices, err = upnp.FilterBy(devices, filters)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		printer.PrintWarning("No devices found", map[string]string{
			"Window": s.wait().String(),
			"Hint":   "Try a longer --timeout or --interface",
		})
		return nil
	}

	var names map[*upnp.Device]string
	if describe {
		names = friendlyNames(ctx, devices)
	}
	printer.PrintTable(devicesTable(devices, names))
	return nil
}

// friendlyNames fetches each description; a device that cannot be
// described is shown with the error text instead
func friendlyNames(ctx context.Context, devices []*upnp.Device) map[*upnp.Device]string {
	names := make(map[*upnp.Device]string, len(devices))
	for _, d := range devices {
		info, err := d.Info(ctx)
		if err != nil {
			names[d] = "(" + upnp.KindOf(err).String() + ")"
			continue
		}
		names[d] = info.FriendlyName
	}
	return names
}

// servicesCmd lists the services of one device
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services of a device",
	Long: `Fetch the device description and list every service it declares,
including those of embedded devices, in document order.

The Template column shows whether 'upnpctl exec' can drive the service.`,
	Example: `  # The gateway found by discovery
  upnpctl services

  # A device by description URL
  upnpctl services --location http://192.168.1.1:5431/dyndev/uuid:0000e0a0-ba70`,
	Args: cobra.NoArgs,
	RunE: runServices,
}

func runServices(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	s, err := newSession(registry)
	if err != nil {
		return err
	}
	d, err := s.target(ctx)
	if err != nil {
		return err
	}

	services, err := d.Services(ctx)
	if err != nil {
		return err
	}
	info, err := d.Info(ctx)
	if err != nil {
		return err
	}
	base, err := d.BaseURL(ctx)
	if err != nil {
		return err
	}

	printer.PrintHeader("Services", "upnpctl services", map[string]string{"Location": d.Location()})
	if printer.Format() != ui.FormatJSON {
		printer.PrintDetails(info.FriendlyName, deviceDetails(info, base))
		printer.Newline()
	}
	printer.PrintTable(servicesTable(services))
	return nil
}

// actionsCmd lists the actions of one service
var actionsCmd = &cobra.Command{
	Use:   "actions [SERVICE]",
	Short: "List the actions of a service",
	Long: `Fetch the service's SCPD and list its actions with their input and output
arguments in declaration order.

SERVICE is a service type, service ID, type name (e.g. WANIPConnection) or
short ID (e.g. WANIPConn1). Without it the WAN connection service of the
gateway is used. The Supported column shows whether the registered template
for this service version implements the action.`,
	Example: `  upnpctl actions
  upnpctl actions WANCommonInterfaceConfig
  upnpctl actions WANIPConnection --variables`,
	Args: cobra.MaximumNArgs(1),
	RunE: runActions,
}

func init() {
	actionsCmd.Flags().BoolVar(&showVariables, "variables", false, "Also list the service state variables")
}

func runActions(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	s, err := newSession(registry)
	if err != nil {
		return err
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	_, svc, err := s.service(ctx, name)
	if err != nil {
		return err
	}

	actions, err := svc.Actions(ctx)
	if err != nil {
		return err
	}

	printer.PrintHeader("Actions", "upnpctl actions", map[string]string{"Service": svc.ServiceType})
	printer.PrintTable(actionsTable(svc, actions))

	if showVariables {
		vars, err := svc.StateVariables(ctx)
		if err != nil {
			return err
		}
		printer.Newline()
		printer.PrintTable(stateVariablesTable(svc, vars))
	}
	return nil
}

// execCmd invokes an action
var execCmd = &cobra.Command{
	Use:   "exec ACTION [VALUE...]",
	Short: "Invoke an action on a service",
	Long: `Invoke ACTION on a service and print the output arguments.

Positional VALUEs bind to the action's input arguments in the order the
device declares them. --arg name=value sets an argument by name; the name
may be the wire name (NewExternalPort) or its short form (externalPort).
Arguments with a default may be left out.

The service defaults to the gateway's WAN connection service; pick another
with --service.`,
	Example: `  upnpctl exec GetExternalIPAddress
  upnpctl exec GetGenericPortMappingEntry 0
  upnpctl exec AddPortMapping --arg externalPort=8080 --arg protocol=TCP \
      --arg internalPort=8080 --arg internalClient=192.168.1.20
  upnpctl exec GetTotalBytesReceived --service WANCommonInterfaceConfig`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&serviceName, "service", "", "Service to invoke (type, ID, type name or short ID)")
	execCmd.Flags().StringArrayVar(&argExprs, "arg", nil, "Named argument as name=value; repeatable")
}

func runExec(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	actionArgs, err := parseExecArgs(args[1:], argExprs)
	if err != nil {
		return err
	}

	s, err := newSession(registry)
	if err != nil {
		return err
	}
	_, svc, err := s.service(ctx, serviceName)
	if err != nil {
		return err
	}

	action, err := svc.Action(ctx, args[0])
	if err != nil {
		return err
	}
	resp, err := svc.Execute(ctx, upnp.ByHandle(action), actionArgs)
	if err != nil {
		return err
	}

	printer.PrintHeader(action.Name, "upnpctl exec "+action.Name, map[string]string{"Service": svc.ServiceType})
	if len(resp) == 0 {
		printer.PrintSuccess(action.Name+" completed", nil)
		return nil
	}
	printer.PrintDetails("Response", responseDetails(action, resp))
	return nil
}

// templatesCmd lists the registered service templates
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the service types and versions that can be driven",
	Long: `List the registered action templates. A service can be driven by exec
only when a template is registered for its exact type and version.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.PrintHeader("Templates", "upnpctl templates", nil)
		printer.PrintTable(templatesTable(upnp.Registered(), showActions))
		return nil
	},
}

func init() {
	templatesCmd.Flags().BoolVar(&showActions, "actions", false, "List action names instead of counts")
}

// parseExecArgs turns positional values and name=value pairs into Arguments.
// Values stay strings; templates convert them to the declared SOAP type.
func parseExecArgs(values []string, named []string) (upnp.Arguments, error) {
	out := upnp.Arguments{}
	for _, v := range values {
		out.Positional = append(out.Positional, v)
	}
	for _, expr := range named {
		name, value, ok := strings.Cut(expr, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return upnp.Arguments{}, upnp.NewInvalidArgumentError(fmt.Sprintf("argument %q is not name=value", expr))
		}
		if _, dup := out.Named[name]; dup {
			return upnp.Arguments{}, upnp.NewInvalidArgumentError(fmt.Sprintf("argument %q given more than once", name))
		}
		out = out.With(name, value)
	}
	return out, nil
}

// parseHeaders parses Name=value M-SEARCH headers
func parseHeaders(exprs []string) (map[string]string, error) {
	headers := make(map[string]string, len(exprs))
	for _, expr := range exprs {
		name, value, ok := strings.Cut(expr, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, upnp.NewInvalidArgumentError(fmt.Sprintf("header %q is not Name=value", expr))
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// headerValue finds name case-insensitively, falling back to def
func headerValue(headers map[string]string, name, def string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return def
}

// parsePort parses a TCP/UDP port number
func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil || n == 0 {
		return 0, upnp.NewInvalidArgumentError(fmt.Sprintf("invalid port %q", s))
	}
	return uint16(n), nil
}
