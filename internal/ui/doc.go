// Package ui provides terminal output components for the upnpctl CLI.
//
// Components use Lipgloss for styling and follow a "render once and print"
// pattern. The only animated component is the discovery spinner, a small
// Bubble Tea program that runs while an SSDP search collects replies and
// exits as soon as the search returns.
//
// # Components
//
//   - Header: command banner showing operation name and parameters
//   - Table: devices, services, actions, and port mappings
//   - Result: success, warning, and failure boxes with troubleshooting hints
//   - Confirm: yes/no prompt for operations that change gateway state
//
// # Output Formats
//
// A Printer renders every component in one of three formats:
//
//	detailed  styled boxes and bordered tables (default)
//	compact   one tab-separated line per row, for shell pipelines
//	json      indented JSON on stdout
//
// Logging goes to stderr (see package logging), so compact and json output
// stay machine readable even at debug level.
package ui
