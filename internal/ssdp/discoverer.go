package ssdp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/upnpctl/internal/logging"
)

const (
	// MulticastAddr is the well-known SSDP multicast group and port
	MulticastAddr = "239.255.255.250:1900"

	// SearchAll asks every device and service to respond
	SearchAll = "ssdp:all"

	// SearchRootDevice asks only root devices to respond
	SearchRootDevice = "upnp:rootdevice"

	// DefaultWait is the default response collection window
	DefaultWait = 2 * time.Second

	// DefaultTTL is the multicast TTL recommended by the UPnP Device Architecture
	DefaultTTL = 2

	// maxDatagramSize bounds a single SSDP response
	maxDatagramSize = 8192
)

// SearchRequest describes one M-SEARCH exchange
type SearchRequest struct {
	// Target is the ST header value (e.g., "ssdp:all")
	Target string

	// Wait is the response collection window, also advertised as MX
	Wait time.Duration

	// Headers are extra request headers supplied by the caller
	Headers map[string]string
}

// MX returns the MX header value: the wait in whole seconds, rounded up, at least 1
func (r SearchRequest) MX() int {
	seconds := int(math.Ceil(r.Wait.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Discoverer sends M-SEARCH requests and collects the replies
type Discoverer struct {
	// Addr is the destination of the search datagram (default: MulticastAddr).
	// Pointing it at a unicast address performs a unicast search.
	Addr string

	// Interface selects the outgoing multicast interface (nil = system default)
	Interface *net.Interface

	// TTL is the multicast hop limit (0 = DefaultTTL)
	TTL int

	// UserAgent is sent as USER-AGENT when non-empty
	UserAgent string

	// ControlPointID is sent as CPUUID.UPNP.ORG when non-nil
	ControlPointID uuid.UUID

	// FriendlyName is sent as CPFN.UPNP.ORG when non-empty
	FriendlyName string

	// Logger receives search and datagram events (nil = global logger)
	Logger *zap.Logger
}

// NewDiscoverer creates a discoverer for the standard multicast group
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		Addr: MulticastAddr,
		TTL:  DefaultTTL,
	}
}

func (d *Discoverer) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.Named("ssdp")
}

// BuildRequest renders the M-SEARCH datagram for req.
// Caller headers are written in sorted order so the bytes are deterministic.
func (d *Discoverer) BuildRequest(req SearchRequest) []byte {
	addr := d.Addr
	if addr == "" {
		addr = MulticastAddr
	}
	target := req.Target
	if target == "" {
		target = SearchAll
	}

	var buf bytes.Buffer
	buf.WriteString("M-SEARCH * HTTP/1.1\r\n")
	writeHeader(&buf, "HOST", addr)
	writeHeader(&buf, "MAN", `"ssdp:discover"`)
	writeHeader(&buf, "MX", strconv.Itoa(req.MX()))
	writeHeader(&buf, "ST", target)
	if d.UserAgent != "" {
		writeHeader(&buf, "USER-AGENT", d.UserAgent)
	}
	if d.ControlPointID != uuid.Nil {
		writeHeader(&buf, "CPUUID.UPNP.ORG", d.ControlPointID.String())
	}
	if d.FriendlyName != "" {
		writeHeader(&buf, "CPFN.UPNP.ORG", d.FriendlyName)
	}

	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&buf, k, req.Headers[k])
	}

	buf.WriteString("\r\n")
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// Discover sends a single M-SEARCH and collects every reply that arrives
// before req.Wait elapses (or ctx is done, whichever comes first).
// An empty result is not an error. Socket failures are returned as *Error
// and are not retried.
func (d *Discoverer) Discover(ctx context.Context, req SearchRequest) ([]Response, error) {
	if req.Wait <= 0 {
		req.Wait = DefaultWait
	}
	addr := d.Addr
	if addr == "" {
		addr = MulticastAddr
	}

	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, &Error{Op: "resolve", Addr: addr, Err: err}
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, &Error{Op: "listen", Addr: addr, Err: err}
	}
	defer func() { _ = conn.Close() }()

	if dst.IP.IsMulticast() {
		if err := d.configureMulticast(conn); err != nil {
			return nil, &Error{Op: "configure", Addr: addr, Err: err}
		}
	}

	log := d.logger()
	payload := d.BuildRequest(req)
	if _, err := conn.WriteToUDP(payload, dst); err != nil {
		return nil, &Error{Op: "send", Addr: addr, Err: err}
	}
	logging.LogSearch(log, addr, req.Target, req.Wait)

	deadline := time.Now().Add(req.Wait)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, &Error{Op: "deadline", Addr: addr, Err: err}
	}

	// Cancelling ctx cuts the window short by moving the deadline to now
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	responses := make([]Response, 0)
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				break
			}
			return nil, &Error{Op: "receive", Addr: addr, Err: err}
		}

		data := append([]byte(nil), buf[:n]...)
		logging.LogDatagram(log, from.String(), data)
		responses = append(responses, NewResponse(from.IP.String(), from.Port, string(data)))
	}

	log.Debug("SSDP collection window closed",
		zap.Int("responses", len(responses)),
		zap.Bool("cancelled", ctx.Err() != nil),
	)

	return responses, nil
}

func (d *Discoverer) configureMulticast(conn *net.UDPConn) error {
	pc := ipv4.NewPacketConn(conn)

	ttl := d.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		return fmt.Errorf("set multicast TTL: %w", err)
	}
	if d.Interface != nil {
		if err := pc.SetMulticastInterface(d.Interface); err != nil {
			return fmt.Errorf("set multicast interface %s: %w", d.Interface.Name, err)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
