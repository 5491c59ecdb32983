// Package logging provides structured logging for upnpctl.
//
// This package wraps a zap logger with convenience functions for the
// logging patterns used throughout the control point: SSDP searches and
// their responses, description fetches and SOAP invocations.
//
// # Log Levels
//
//   - Debug: Raw datagrams, fetched document sizes
//   - Info: Searches sent, actions invoked
//   - Warn: Non-fatal oddities (malformed SSDP headers)
//   - Error: Failures reported by the CLI
//
// # Configuration
//
// Logging is silent by default so CLI output stays clean. Enable it with
// the --log-level flag or the UPNPCTL_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Library packages accept a *zap.Logger through their options and fall
// back to logging.GetLogger() when none is given.
package logging
