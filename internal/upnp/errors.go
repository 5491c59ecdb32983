package upnp

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindDiscovery indicates a socket failure during M-SEARCH
	KindDiscovery Kind = iota + 1
	// KindTransport indicates an HTTP failure fetching a description document
	KindTransport
	// KindDescriptionParse indicates a missing or malformed element in a description
	KindDescriptionParse
	// KindNoDeviceSelected indicates an operation needed a selected device
	KindNoDeviceSelected
	// KindNoServiceSelected indicates an operation needed a selected service
	KindNoServiceSelected
	// KindServiceNotFound indicates the requested service is not offered by the device
	KindServiceNotFound
	// KindActionNotFound indicates the action is absent from the service's SCPD
	KindActionNotFound
	// KindUnsupportedService indicates no template exists for the service type
	KindUnsupportedService
	// KindUnsupportedServiceVersion indicates no template exists for the exact version
	KindUnsupportedServiceVersion
	// KindUnsupportedAction indicates the template does not implement the action
	KindUnsupportedAction
	// KindInvalidArgument indicates a malformed parameter (wrong type, empty action reference)
	KindInvalidArgument
	// KindArgumentMismatch indicates the supplied arguments do not bind to the action's parameters
	KindArgumentMismatch
	// KindSOAP indicates the device answered with a SOAP fault
	KindSOAP
	// KindUnknownFilter indicates an unsupported filter key
	KindUnknownFilter
	// KindNoIGDFound indicates no Internet Gateway Device answered
	KindNoIGDFound
	// KindMultipleIGDsFound indicates more than one Internet Gateway Device answered
	KindMultipleIGDsFound
)

// TransportSubtype provides a more specific classification of transport errors
type TransportSubtype int

const (
	TransportGeneral TransportSubtype = iota
	TransportTimeout
	TransportConnectionRefused
	TransportDNS
	TransportHostUnreachable
	TransportNetworkUnreachable
	TransportHTTPStatus
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindDiscovery:
		return "Discovery Error"
	case KindTransport:
		return "Transport Error"
	case KindDescriptionParse:
		return "Description Parse Error"
	case KindNoDeviceSelected:
		return "No Device Selected"
	case KindNoServiceSelected:
		return "No Service Selected"
	case KindServiceNotFound:
		return "Service Not Found"
	case KindActionNotFound:
		return "Action Not Found"
	case KindUnsupportedService:
		return "Unsupported Service"
	case KindUnsupportedServiceVersion:
		return "Unsupported Service Version"
	case KindUnsupportedAction:
		return "Unsupported Action"
	case KindInvalidArgument:
		return "Invalid Argument"
	case KindArgumentMismatch:
		return "Argument Mismatch"
	case KindSOAP:
		return "SOAP Error"
	case KindUnknownFilter:
		return "Unknown Filter"
	case KindNoIGDFound:
		return "No IGD Found"
	case KindMultipleIGDsFound:
		return "Multiple IGDs Found"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by every operation in this package
type Error struct {
	Kind        Kind             // Category of error
	Message     string           // Human-readable error message
	ServiceType string           // Service URN involved (if applicable)
	Action      string           // Action name involved (if applicable)
	Element     string           // XML element that was missing or malformed
	URL         string           // Document or control URL involved
	Code        int              // UPnP error code (SOAP faults) or HTTP status
	Description string           // UPnP error description (SOAP faults)
	Subtype     TransportSubtype // Transport classification
	Err         error            // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind: errors.Is(err, &Error{Kind: KindSOAP})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks
var (
	ErrDiscovery                 = &Error{Kind: KindDiscovery}
	ErrTransport                 = &Error{Kind: KindTransport}
	ErrDescriptionParse          = &Error{Kind: KindDescriptionParse}
	ErrNoDeviceSelected          = &Error{Kind: KindNoDeviceSelected}
	ErrNoServiceSelected         = &Error{Kind: KindNoServiceSelected}
	ErrServiceNotFound           = &Error{Kind: KindServiceNotFound}
	ErrActionNotFound            = &Error{Kind: KindActionNotFound}
	ErrUnsupportedService        = &Error{Kind: KindUnsupportedService}
	ErrUnsupportedServiceVersion = &Error{Kind: KindUnsupportedServiceVersion}
	ErrUnsupportedAction         = &Error{Kind: KindUnsupportedAction}
	ErrInvalidArgument           = &Error{Kind: KindInvalidArgument}
	ErrArgumentMismatch          = &Error{Kind: KindArgumentMismatch}
	ErrSOAP                      = &Error{Kind: KindSOAP}
	ErrUnknownFilter             = &Error{Kind: KindUnknownFilter}
	ErrNoIGDFound                = &Error{Kind: KindNoIGDFound}
	ErrMultipleIGDsFound         = &Error{Kind: KindMultipleIGDsFound}
)

// NewDiscoveryError wraps a socket failure during discovery
func NewDiscoveryError(err error) *Error {
	return &Error{Kind: KindDiscovery, Message: "SSDP search failed", Err: err}
}

// NewTransportError creates a transport error with automatic classification
func NewTransportError(message, url string, err error) *Error {
	e := &Error{Kind: KindTransport, Message: message, URL: url, Err: err}
	e.Subtype = classifyTransport(err)
	return e
}

// NewHTTPStatusError creates a transport error for an unexpected HTTP status
func NewHTTPStatusError(url string, statusCode int) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: fmt.Sprintf("unexpected status code %d fetching %s", statusCode, url),
		URL:     url,
		Code:    statusCode,
		Subtype: TransportHTTPStatus,
	}
}

// NewDescriptionParseError creates a parse error naming the offending element
func NewDescriptionParseError(url, element, message string, err error) *Error {
	return &Error{
		Kind:    KindDescriptionParse,
		Message: message,
		URL:     url,
		Element: element,
		Err:     err,
	}
}

// newMissingElementError reports a required element that is absent
func newMissingElementError(url, element, parent string) *Error {
	return NewDescriptionParseError(url, element,
		fmt.Sprintf("required element <%s> missing from <%s>", element, parent), nil)
}

// NewServiceNotFoundError reports a service string not offered by a device
func NewServiceNotFoundError(name string) *Error {
	return &Error{Kind: KindServiceNotFound, Message: fmt.Sprintf("no service found matching %q", name)}
}

// NewActionNotFoundError reports an action absent from a service's action list
func NewActionNotFoundError(serviceType, action string) *Error {
	return &Error{
		Kind:        KindActionNotFound,
		Message:     fmt.Sprintf("action %q not found in service %s", action, serviceType),
		ServiceType: serviceType,
		Action:      action,
	}
}

// NewUnsupportedServiceError reports a service type without any template
func NewUnsupportedServiceError(serviceType string) *Error {
	return &Error{
		Kind:        KindUnsupportedService,
		Message:     fmt.Sprintf("no template registered for service %s", serviceType),
		ServiceType: serviceType,
	}
}

// NewUnsupportedServiceVersionError reports a service type whose exact version has no template
func NewUnsupportedServiceVersionError(serviceType string, version int, available []int) *Error {
	return &Error{
		Kind: KindUnsupportedServiceVersion,
		Message: fmt.Sprintf("no template registered for version %d of %s (registered: %v)",
			version, serviceType, available),
		ServiceType: serviceType,
	}
}

// NewUnsupportedActionError reports an action present in the SCPD but not in the template
func NewUnsupportedActionError(serviceType, action string) *Error {
	return &Error{
		Kind:        KindUnsupportedAction,
		Message:     fmt.Sprintf("action %q is not implemented for %s", action, serviceType),
		ServiceType: serviceType,
		Action:      action,
	}
}

// NewInvalidArgumentError reports a malformed parameter
func NewInvalidArgumentError(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

// NewArgumentMismatchError reports arguments that do not bind to an action's parameters
func NewArgumentMismatchError(action, message string, err error) *Error {
	return &Error{
		Kind:    KindArgumentMismatch,
		Message: fmt.Sprintf("%s: %s", action, message),
		Action:  action,
		Err:     err,
	}
}

// NewSOAPError reports a fault returned by the device
func NewSOAPError(serviceType, action, description string, code int, err error) *Error {
	return &Error{
		Kind:        KindSOAP,
		Message:     fmt.Sprintf("%s failed with UPnP error %d (%s)", action, code, description),
		ServiceType: serviceType,
		Action:      action,
		Code:        code,
		Description: description,
		Err:         err,
	}
}

// NewUnknownFilterError reports an unsupported filter key
func NewUnknownFilterError(key string) *Error {
	return &Error{Kind: KindUnknownFilter, Message: fmt.Sprintf("unknown filter %q", key)}
}

// KindOf returns the kind of err, or 0 if err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsDiscoveryError checks if an error is a discovery error
func IsDiscoveryError(err error) bool { return KindOf(err) == KindDiscovery }

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool { return KindOf(err) == KindTransport }

// IsDescriptionParseError checks if an error is a description parse error
func IsDescriptionParseError(err error) bool { return KindOf(err) == KindDescriptionParse }

// IsSOAPError checks if an error is a SOAP fault
func IsSOAPError(err error) bool { return KindOf(err) == KindSOAP }

// IsNotFound checks if an error reports a missing device, service or action
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindServiceNotFound, KindActionNotFound, KindNoIGDFound:
		return true
	}
	return false
}

// IsUnsupported checks if an error reports a missing template
func IsUnsupported(err error) bool {
	switch KindOf(err) {
	case KindUnsupportedService, KindUnsupportedServiceVersion, KindUnsupportedAction:
		return true
	}
	return false
}

// classifyTransport analyzes an HTTP client error
func classifyTransport(err error) TransportSubtype {
	if err == nil {
		return TransportGeneral
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		return classifyTransport(urlErr.Err)
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return TransportTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportDNS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return TransportConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH):
		return TransportHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		return TransportNetworkUnreachable
	}

	return TransportGeneral
}

// Hint returns user-facing troubleshooting advice for an error
func Hint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	switch e.Kind {
	case KindDiscovery:
		return strings.Join([]string{
			"The SSDP search could not be sent or received.",
			"  • Check that a network interface with multicast is up",
			"  • Allow outgoing UDP to 239.255.255.250:1900 and the replies back",
			"  • Try --interface to pick the LAN-facing adapter",
		}, "\n")

	case KindTransport:
		switch e.Subtype {
		case TransportTimeout:
			return "The device did not answer the HTTP request in time. Try a longer --http-timeout."
		case TransportConnectionRefused:
			return "The device refused the HTTP connection. The LOCATION port may be stale; run discover again."
		case TransportDNS:
			return "The LOCATION host name could not be resolved. Use the IP address form."
		case TransportHostUnreachable, TransportNetworkUnreachable:
			return "The device is not reachable from this host. Check you are on the same network segment."
		case TransportHTTPStatus:
			return fmt.Sprintf("The device returned HTTP %d for a description document.", e.Code)
		}
		return "The device description could not be fetched."

	case KindDescriptionParse:
		return fmt.Sprintf("The device published a malformed description (element <%s>). This is a firmware issue.", e.Element)

	case KindNoIGDFound:
		return strings.Join([]string{
			"No Internet Gateway Device answered.",
			"  • Enable UPnP on the router",
			"  • Run 'upnpctl discover' to see which devices do answer",
		}, "\n")

	case KindMultipleIGDsFound:
		return "Several gateways answered. Pick one explicitly with --location."

	case KindUnsupportedService, KindUnsupportedServiceVersion:
		return "Run 'upnpctl templates' to list the service types and versions that can be driven."

	case KindArgumentMismatch:
		return "Run 'upnpctl actions' to see the arguments each action takes."

	case KindSOAP:
		if desc, ok := soapErrorDescriptions[e.Code]; ok {
			return desc
		}
		return "The device rejected the action."
	}

	return ""
}

// soapErrorDescriptions explains the UPnP error codes seen most often from IGDs
var soapErrorDescriptions = map[int]string{
	401: "Invalid Action: the device does not offer this action.",
	402: "Invalid Args: the device rejected one of the argument values.",
	501: "Action Failed: the device could not complete the request.",
	606: "Action not authorized: the gateway requires authorization for this action.",
	713: "SpecifiedArrayIndexInvalid: there is no port mapping at that index.",
	714: "NoSuchEntryInArray: the port mapping does not exist.",
	718: "ConflictInMappingEntry: the external port is already mapped to another client.",
	724: "SamePortValuesRequired: this gateway requires internal and external ports to match.",
	725: "OnlyPermanentLeasesSupported: retry with leaseDuration=0.",
}
