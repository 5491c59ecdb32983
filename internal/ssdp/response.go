package ssdp

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Response is a single SSDP reply together with the address it came from.
// A device answering several times yields several Responses.
type Response struct {
	// Host is the source IP of the datagram (e.g., "192.168.1.1")
	Host string

	// Port is the source UDP port of the datagram
	Port int

	// Raw is the datagram text exactly as received
	Raw string

	// Header holds the parsed response headers, keyed canonically
	Header http.Header

	// ReceivedAt is when the datagram arrived
	ReceivedAt time.Time
}

// NewResponse wraps a raw datagram received from host:port.
func NewResponse(host string, port int, raw string) Response {
	return Response{
		Host:       host,
		Port:       port,
		Raw:        raw,
		Header:     ParseHeader(raw),
		ReceivedAt: time.Now(),
	}
}

// Addr returns the "host:port" form of the source address
func (r Response) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Get returns the value of a header, matched case-insensitively.
// Returns empty string if the header is absent.
func (r Response) Get(name string) string {
	if r.Header == nil {
		return ParseHeader(r.Raw).Get(name)
	}
	return r.Header.Get(name)
}

// Lookup reports whether a header is present and returns its value
func (r Response) Lookup(name string) (string, bool) {
	h := r.Header
	if h == nil {
		h = ParseHeader(r.Raw)
	}
	values, ok := h[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// ST returns the search target the device answered with
func (r Response) ST() string { return r.Get("ST") }

// USN returns the unique service name of the response
func (r Response) USN() string { return r.Get("USN") }

// Server returns the SERVER header (OS/version UPnP/version product/version)
func (r Response) Server() string { return r.Get("Server") }

// MaxAge returns the max-age directive of CACHE-CONTROL, or 0 when absent
func (r Response) MaxAge() time.Duration {
	for _, directive := range strings.Split(r.Get("Cache-Control"), ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// Location parses the LOCATION header, which points at the device description
func (r Response) Location() (*url.URL, error) {
	raw := r.Get("Location")
	if raw == "" {
		return nil, fmt.Errorf("response from %s has no LOCATION header", r.Addr())
	}
	loc, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("response from %s has invalid LOCATION %q: %w", r.Addr(), raw, err)
	}
	if loc.Scheme == "" || loc.Host == "" {
		return nil, fmt.Errorf("response from %s has non-absolute LOCATION %q", r.Addr(), raw)
	}
	return loc, nil
}

// String returns a compact description of the response
func (r Response) String() string {
	return fmt.Sprintf("SSDP response from %s (ST: %s)", r.Addr(), r.ST())
}

// ParseHeader extracts "Name: value" header lines from an HTTP-like message.
// The first line is skipped when it is a status or request line. Parsing is
// lenient: lines without a colon are ignored instead of failing, since
// devices in the field emit all kinds of almost-HTTP.
func ParseHeader(raw string) http.Header {
	header := make(http.Header)
	scanner := bufio.NewScanner(strings.NewReader(raw))

	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first {
			first = false
			if isStartLine(line) {
				continue
			}
		}
		if strings.TrimSpace(line) == "" {
			// Blank line terminates the header block
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		header.Add(textproto.CanonicalMIMEHeaderKey(name), strings.TrimSpace(value))
	}

	return header
}

func isStartLine(line string) bool {
	upper := strings.ToUpper(line)
	return strings.HasPrefix(upper, "HTTP/") ||
		strings.HasPrefix(upper, "NOTIFY ") ||
		strings.HasPrefix(upper, "M-SEARCH ")
}
