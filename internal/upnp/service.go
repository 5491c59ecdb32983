package upnp

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"go.uber.org/zap"
)

// Service is one <service> entry of a device description. Its URLs are kept
// as published and resolved against BaseURL on use.
type Service struct {
	ServiceType string
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
	BaseURL     string

	urn serviceURN
	t   *transport

	description lazy[[]byte]
	scpd        lazy[*scpdDocument]
}

// NewService creates a service bound to baseURL. serviceType must be of the
// form urn:<domain>:service:<type>:<version> with a positive version.
func NewService(serviceType, serviceID, scpdURL, controlURL, eventSubURL, baseURL string, opts ...Option) (*Service, error) {
	svc, err := newService(serviceType, serviceID, scpdURL, controlURL, eventSubURL, baseURL, newTransport(opts))
	if err != nil {
		return nil, NewInvalidArgumentError(err.Error())
	}
	return svc, nil
}

func newService(serviceType, serviceID, scpdURL, controlURL, eventSubURL, baseURL string, t *transport) (*Service, error) {
	urn, err := parseServiceURN(serviceType)
	if err != nil {
		return nil, err
	}
	return &Service{
		ServiceType: serviceType,
		ServiceID:   serviceID,
		SCPDURL:     scpdURL,
		ControlURL:  controlURL,
		EventSubURL: eventSubURL,
		BaseURL:     baseURL,
		urn:         urn,
		t:           t,
	}, nil
}

// TypeName returns the type segment of the service type ("WANIPConnection")
func (s *Service) TypeName() string { return s.urn.typeName }

// Version returns the version segment of the service type
func (s *Service) Version() int { return s.urn.version }

// TypeURN returns the service type without its version
// ("urn:schemas-upnp-org:service:WANIPConnection")
func (s *Service) TypeURN() string { return s.urn.unversioned() }

// Domain returns the domain segment of the service type ("schemas-upnp-org")
func (s *Service) Domain() string { return s.urn.domain }

// ShortID returns the last segment of the service ID ("WANIPConn1")
func (s *Service) ShortID() string { return lastSegment(s.ServiceID) }

// String implements fmt.Stringer
func (s *Service) String() string {
	return fmt.Sprintf("Service <%s:%d id=%s>", s.TypeName(), s.Version(), s.ShortID())
}

func (s *Service) matches(name string) bool {
	return name == s.ServiceType || name == s.ServiceID || name == s.TypeName() || name == s.ShortID()
}

// SCPDLocation returns the absolute SCPD URL
func (s *Service) SCPDLocation() (string, error) { return s.resolve("SCPDURL", s.SCPDURL) }

// ControlLocation returns the absolute control URL
func (s *Service) ControlLocation() (string, error) { return s.resolve("controlURL", s.ControlURL) }

// EventSubLocation returns the absolute event subscription URL
func (s *Service) EventSubLocation() (string, error) {
	return s.resolve("eventSubURL", s.EventSubURL)
}

// resolve applies RFC 3986 reference resolution of ref against BaseURL
func (s *Service) resolve(element, ref string) (string, error) {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", NewDescriptionParseError(s.BaseURL, "URLBase", "invalid base URL", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", NewDescriptionParseError(s.BaseURL, element, fmt.Sprintf("invalid %s %q", element, ref), err)
	}
	return base.ResolveReference(r).String(), nil
}

// SetDescription seeds the SCPD cache. It has no effect once the
// description has been resolved and reports whether doc was stored.
func (s *Service) SetDescription(doc []byte) bool {
	return s.description.set(doc)
}

// Description returns the SCPD document, fetching it on first use
func (s *Service) Description(ctx context.Context) ([]byte, error) {
	return s.description.get(ctx, func(ctx context.Context) ([]byte, error) {
		loc, err := s.SCPDLocation()
		if err != nil {
			return nil, err
		}
		s.t.logger.Debug("Fetching service description",
			zap.String("service", s.ServiceType),
			zap.String("scpd", loc),
		)
		return s.t.fetcher.Fetch(ctx, loc)
	})
}

func (s *Service) parsed(ctx context.Context) (*scpdDocument, error) {
	return s.scpd.get(ctx, func(ctx context.Context) (*scpdDocument, error) {
		doc, err := s.Description(ctx)
		if err != nil {
			return nil, err
		}
		loc, _ := s.SCPDLocation()
		return parseSCPD(loc, doc)
	})
}

// Actions returns the actions declared by the SCPD in document order
func (s *Service) Actions(ctx context.Context) ([]*Action, error) {
	doc, err := s.parsed(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(doc.actions), nil
}

// Action returns the action named name
func (s *Service) Action(ctx context.Context, name string) (*Action, error) {
	doc, err := s.parsed(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range doc.actions {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, NewActionNotFoundError(s.ServiceType, name)
}

// StateVariables returns the service state table in document order
func (s *Service) StateVariables(ctx context.Context) ([]StateVariable, error) {
	doc, err := s.parsed(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(doc.stateVariables), nil
}
