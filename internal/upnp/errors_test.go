package upnp

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNewTransportError_Classification(t *testing.T) {
	dial := func(err error) error {
		return &url.Error{
			Op:  "Get",
			URL: "http://192.168.1.1:5431/desc.xml",
			Err: &net.OpError{Op: "dial", Net: "tcp", Err: err},
		}
	}

	tests := []struct {
		name string
		err  error
		want TransportSubtype
	}{
		{"timeout", dial(timeoutError{}), TransportTimeout},
		{"connection refused", dial(syscall.ECONNREFUSED), TransportConnectionRefused},
		{"host unreachable", dial(syscall.EHOSTUNREACH), TransportHostUnreachable},
		{"network unreachable", dial(syscall.ENETUNREACH), TransportNetworkUnreachable},
		{"dns", &net.DNSError{Err: "no such host", Name: "gateway.invalid", IsNotFound: true}, TransportDNS},
		{"other", errors.New("unexpected EOF"), TransportGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewTransportError("fetch failed", "http://192.168.1.1:5431/desc.xml", tt.err)
			if e.Kind != KindTransport {
				t.Errorf("Kind = %v, want %v", e.Kind, KindTransport)
			}
			if e.Subtype != tt.want {
				t.Errorf("Subtype = %v, want %v", e.Subtype, tt.want)
			}
			if !errors.Is(e, tt.err) {
				t.Error("Expected the cause to be reachable through Unwrap")
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := NewActionNotFoundError(wanIPConn1, "GetFoo")

	if !errors.Is(err, ErrActionNotFound) {
		t.Error("Expected errors.Is to match the action-not-found sentinel")
	}
	if errors.Is(err, ErrServiceNotFound) {
		t.Error("Expected errors.Is not to match a different kind")
	}
	if errors.Is(err, NewActionNotFoundError(wanIPConn1, "GetBar")) {
		t.Error("Expected a non-sentinel target not to match by kind alone")
	}
}

func TestError_Message(t *testing.T) {
	err := NewSOAPError(wanIPConn1, "AddPortMapping", "ConflictInMappingEntry", 718, errors.New("fault"))

	msg := err.Error()
	for _, want := range []string{"SOAP Error", "AddPortMapping", "718", "ConflictInMappingEntry", "caused by: fault"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, want)
		}
	}
}

func TestKind_String(t *testing.T) {
	for k := KindDiscovery; k <= KindMultipleIGDsFound; k++ {
		if s := k.String(); s == "" || strings.HasPrefix(s, "Kind(") {
			t.Errorf("Kind(%d).String() = %q, want a name", int(k), s)
		}
	}
	if got := Kind(99).String(); got != "Kind(99)" {
		t.Errorf("Kind(99).String() = %q, want %q", got, "Kind(99)")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", got)
	}

	wrapped := errors.Join(errors.New("context"), NewUnknownFilterError("bogus"))
	if got := KindOf(wrapped); got != KindUnknownFilter {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindUnknownFilter)
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no IGD", &Error{Kind: KindNoIGDFound}, "Enable UPnP"},
		{"several IGDs", &Error{Kind: KindMultipleIGDsFound}, "--location"},
		{"refused", NewTransportError("x", "u", syscall.ECONNREFUSED), "refused"},
		{"http status", NewHTTPStatusError("http://h/desc.xml", 500), "HTTP 500"},
		{"parse", NewDescriptionParseError("u", "controlURL", "x", nil), "<controlURL>"},
		{"known fault", NewSOAPError(wanIPConn1, "AddPortMapping", "OnlyPermanentLeasesSupported", 725, nil), "leaseDuration=0"},
		{"unknown fault", NewSOAPError(wanIPConn1, "AddPortMapping", "Vendor", 899, nil), "rejected"},
		{"version", NewUnsupportedServiceVersionError("WANIPConnection", 3, []int{1, 2}), "upnpctl templates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hint(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("Hint() = %q, want it to contain %q", got, tt.want)
			}
		})
	}

	if got := Hint(errors.New("plain")); got != "" {
		t.Errorf("Hint(plain) = %q, want empty", got)
	}
}
