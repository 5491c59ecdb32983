package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/upnpctl/internal/ui"
	"github.com/muurk/upnpctl/internal/upnp"
)

// Port mapping flags
var (
	mapProtocol    string
	mapClient      string
	mapDescription string
	mapLease       time.Duration
	mapRemoteHost  string
	assumeYes      bool
)

var igdCmd = &cobra.Command{
	Use:   "igd",
	Short: "Internet Gateway Device commands",
	Long: `Shortcuts for the WANIPConnection / WANPPPConnection actions of an
Internet Gateway Device. The gateway is found by discovery unless --location
or --device is given.`,
}

func init() {
	rootCmd.AddCommand(igdCmd)
	igdCmd.AddCommand(igdIPCmd)
	igdCmd.AddCommand(igdListCmd)
	igdCmd.AddCommand(igdAddCmd)
	igdCmd.AddCommand(igdDeleteCmd)

	for _, c := range []*cobra.Command{igdAddCmd, igdDeleteCmd} {
		c.Flags().StringVar(&mapProtocol, "protocol", "TCP", "Protocol (TCP or UDP)")
		c.Flags().StringVar(&mapRemoteHost, "remote-host", "", "Remote host the mapping applies to (empty = any)")
	}
	igdAddCmd.Flags().StringVar(&mapClient, "client", "", "Internal client address (default: this host's address towards the gateway)")
	igdAddCmd.Flags().StringVar(&mapDescription, "description", "upnpctl", "Mapping description")
	igdAddCmd.Flags().DurationVar(&mapLease, "lease", 0, "Lease duration (0 = permanent)")
	igdDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking")
}

var igdIPCmd = &cobra.Command{
	Use:   "ip",
	Short: "Print the gateway's external IP address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		s, err := newSession(registry)
		if err != nil {
			return err
		}
		_, svc, err := s.service(ctx, "")
		if err != nil {
			return err
		}
		ip, err := upnp.ExternalIPAddress(ctx, svc)
		if err != nil {
			return err
		}

		if printer.Format() == ui.FormatDetailed {
			printer.PrintSuccess("External IP address", map[string]string{"Address": ip, "Service": svc.ServiceType})
			return nil
		}
		printer.PrintDetails("", []ui.Detail{{Key: "NewExternalIPAddress", Value: ip}})
		return nil
	},
}

var igdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the gateway's port mappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		s, err := newSession(registry)
		if err != nil {
			return err
		}
		d, svc, err := s.service(ctx, "")
		if err != nil {
			return err
		}
		mappings, err := upnp.PortMappings(ctx, svc)
		if err != nil {
			return err
		}

		printer.PrintHeader("Port mappings", "upnpctl igd list", map[string]string{"Gateway": d.Addr()})
		if len(mappings) == 0 && printer.Format() == ui.FormatDetailed {
			printer.PrintWarning("No port mappings", nil)
			return nil
		}
		printer.PrintTable(portMappingsTable(mappings))
		return nil
	},
}

var igdAddCmd = &cobra.Command{
	Use:   "add EXTERNAL_PORT [INTERNAL_PORT]",
	Short: "Add a port mapping",
	Long: `Map EXTERNAL_PORT on the gateway to INTERNAL_PORT (default: the same
port) on an internal client. An existing mapping for the same external port
and protocol is replaced by the gateway.`,
	Example: `  upnpctl igd add 8080
  upnpctl igd add 2222 22 --client 192.168.1.20 --description ssh
  upnpctl igd add 51820 --protocol UDP --lease 1h`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		m, err := portMappingFromArgs(args)
		if err != nil {
			return err
		}

		s, err := newSession(registry)
		if err != nil {
			return err
		}
		d, svc, err := s.service(ctx, "")
		if err != nil {
			return err
		}
		if m.InternalClient == "" {
			if m.InternalClient, err = localAddrFor(d.Host); err != nil {
				return err
			}
		}

		if err := upnp.AddPortMapping(ctx, svc, m); err != nil {
			return err
		}
		printer.PrintSuccess("Port mapping added", map[string]string{
			"External": fmt.Sprintf("%s %d", m.Protocol, m.ExternalPort),
			"Internal": net.JoinHostPort(m.InternalClient, strconv.Itoa(int(m.InternalPort))),
			"Lease":    leaseString(m.LeaseDuration),
			"Gateway":  d.Addr(),
		})
		return nil
	},
}

var igdDeleteCmd = &cobra.Command{
	Use:   "delete EXTERNAL_PORT",
	Short: "Delete a port mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		protocol, err := normalizeProtocol(mapProtocol)
		if err != nil {
			return err
		}

		s, err := newSession(registry)
		if err != nil {
			return err
		}
		d, svc, err := s.service(ctx, "")
		if err != nil {
			return err
		}

		if !assumeYes {
			if !ui.IsTerminal(os.Stdin) {
				return upnp.NewInvalidArgumentError("refusing to delete a mapping without --yes when stdin is not a terminal")
			}
			ok := ui.Confirm(os.Stdin, os.Stderr, "Delete port mapping", []string{
				fmt.Sprintf("%s %d on %s will stop forwarding", protocol, port, d.Addr()),
			})
			if !ok {
				return nil
			}
		}

		_, err = svc.Execute(ctx, upnp.ByName("DeletePortMapping"), upnp.Named(
			"remoteHost", mapRemoteHost,
			"externalPort", port,
			"protocol", protocol,
		))
		if err != nil {
			return err
		}
		printer.PrintSuccess("Port mapping deleted", map[string]string{
			"External": fmt.Sprintf("%s %d", protocol, port),
			"Gateway":  d.Addr(),
		})
		return nil
	},
}

// portMappingFromArgs builds the mapping from the add arguments and flags
func portMappingFromArgs(args []string) (upnp.PortMapping, error) {
	ext, err := parsePort(args[0])
	if err != nil {
		return upnp.PortMapping{}, err
	}
	internal := ext
	if len(args) > 1 {
		if internal, err = parsePort(args[1]); err != nil {
			return upnp.PortMapping{}, err
		}
	}
	protocol, err := normalizeProtocol(mapProtocol)
	if err != nil {
		return upnp.PortMapping{}, err
	}
	if mapLease < 0 {
		return upnp.PortMapping{}, upnp.NewInvalidArgumentError("lease must not be negative")
	}

	return upnp.PortMapping{
		RemoteHost:     mapRemoteHost,
		ExternalPort:   ext,
		Protocol:       protocol,
		InternalPort:   internal,
		InternalClient: mapClient,
		Enabled:        true,
		Description:    mapDescription,
		LeaseDuration:  uint32(mapLease / time.Second),
	}, nil
}

func normalizeProtocol(p string) (string, error) {
	switch up := strings.ToUpper(strings.TrimSpace(p)); up {
	case "TCP", "UDP":
		return up, nil
	}
	return "", upnp.NewInvalidArgumentError(fmt.Sprintf("protocol %q must be TCP or UDP", p))
}

// localAddrFor returns the local address the OS would use to reach host.
// Connecting a UDP socket sends nothing.
func localAddrFor(host string) (string, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(host, "1900"))
	if err != nil {
		return "", upnp.NewInvalidArgumentError(fmt.Sprintf("cannot determine the local address towards %s (use --client): %v", host, err))
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
