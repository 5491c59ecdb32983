// Package ssdp implements the search half of the Simple Service Discovery
// Protocol used by UPnP control points.
//
// A Discoverer sends one M-SEARCH datagram to the SSDP multicast group
// (239.255.255.250:1900) and collects every unicast reply that arrives
// within the collection window. Each reply becomes a Response carrying the
// source address and the raw header text, which downstream code uses to
// locate the device description (LOCATION) or to filter devices by header.
//
// # Usage Example
//
//	d := ssdp.NewDiscoverer()
//	responses, err := d.Discover(ctx, ssdp.SearchRequest{
//	    Target: "urn:schemas-upnp-org:device:InternetGatewayDevice:1",
//	    Wait:   2 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range responses {
//	    fmt.Println(r.Addr(), r.Get("LOCATION"))
//	}
//
// # Semantics
//
//   - Replies are not de-duplicated; multi-homed devices answer once per interface.
//   - The collection window ending is the normal exit, even with zero replies.
//   - Socket errors abort the search and are never retried.
//
// # Network Requirements
//
// Multicast must be routable on the outgoing interface and the firewall
// must let unicast UDP replies back to the ephemeral source port.
package ssdp
