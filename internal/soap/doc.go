// Package soap sends UPnP action invocations to a service control URL.
//
// Envelope construction, the SOAPACTION header and fault decoding are
// delegated to github.com/huin/goupnp/soap. This package adapts it to the
// shape the control point needs: ordered, already-rendered input arguments
// in, a name-to-value map of output arguments out, and faults surfaced as
// *FaultError carrying the UPnP error code and description.
//
// No retries are performed. Timeouts come from the caller's context.
package soap
