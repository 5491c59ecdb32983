// Package upnp is a UPnP control point: it turns SSDP discovery responses
// into devices, resolves their device and service descriptions on demand,
// and invokes service actions through versioned templates.
//
// # Resolution
//
// A Device is created from an ssdp.Response. Nothing is fetched until it is
// needed: Services fetches the description at LOCATION, derives the base
// URL from <URLBase> (or the scheme and authority of LOCATION) and lists
// every <service> element in document order. A Service fetches its SCPD on
// the first call to Actions. Each step is resolved at most once and cached;
// a failed step is not cached, so calling again retries it.
//
// # Dispatch
//
// Service.Execute looks up the action in the live SCPD, then the template
// registered for the exact service type and version (no version fallback),
// binds the caller's arguments to the action's fixed parameter table and
// sends the call through a soap.Sender:
//
//	svc, _ := device.Service(ctx, "WANIPConnection")
//	resp, err := svc.Execute(ctx, upnp.ByName("GetExternalIPAddress"), upnp.Arguments{})
//
// Every failure is returned as *Error; use KindOf or errors.Is with the
// Err* sentinels to branch on the category. Nothing is retried.
package upnp
