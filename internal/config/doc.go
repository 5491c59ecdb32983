// Package config provides user configuration management for upnpctl.
//
// This package manages a YAML-based configuration file that stores the
// control point identity announced in SSDP searches, default discovery
// parameters, and the devices seen by the last discoveries. The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/upnpctl/config.yaml or $HOME/.config/upnpctl/config.yaml
//   - macOS: $HOME/.config/upnpctl/config.yaml
//   - Windows: %LOCALAPPDATA%\upnpctl\config.yaml
//
// # File Format
//
//	version: 1
//	control_point:
//	  uuid: 8b1f0e1c-4d9a-4c59-9a63-0d3bd2e1b6f4
//	  friendly_name: upnpctl
//	discovery:
//	  timeout_seconds: 2
//	  search_target: ssdp:all
//	  ttl: 2
//	devices:
//	  uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba700::urn:schemas-upnp-org:device:InternetGatewayDevice:1:
//	    location: http://192.168.1.1:5431/dyndev/uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba700
//	    st: urn:schemas-upnp-org:device:InternetGatewayDevice:1
//	    host: 192.168.1.1
//	    port: 1900
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
