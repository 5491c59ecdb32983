package upnp

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/ssdp"
)

// Device is a discovered UPnP device. Its description document, base URL,
// service list and info are resolved on first use and cached for the
// lifetime of the Device.
type Device struct {
	// Host and Port are the source address of the SSDP response
	Host string
	Port int

	// Response is the SSDP response the device was discovered from
	Response ssdp.Response

	t *transport

	description lazy[[]byte]
	document    lazy[*deviceDocument]
	baseURL     lazy[string]
	services    lazy[[]*Service]
}

// NewDevice creates a device from an SSDP response
func NewDevice(resp ssdp.Response, opts ...Option) *Device {
	return &Device{
		Host:     resp.Host,
		Port:     resp.Port,
		Response: resp,
		t:        newTransport(opts),
	}
}

// DeviceAt creates a device for a known description URL without discovery.
// The device address is taken from the URL.
func DeviceAt(location string, opts ...Option) (*Device, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, NewInvalidArgumentError(fmt.Sprintf("location %q is not an absolute URL", location))
	}

	host := u.Hostname()
	port := 80
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, NewInvalidArgumentError(fmt.Sprintf("location %q has an invalid port", location))
		}
	} else if u.Scheme == "https" {
		port = 443
	}

	raw := "HTTP/1.1 200 OK\r\nLOCATION: " + location + "\r\n\r\n"
	return NewDevice(ssdp.NewResponse(host, port, raw), opts...), nil
}

// Addr returns the device address as host:port
func (d *Device) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Location returns the LOCATION header of the discovery response
func (d *Device) Location() string {
	return d.Response.Get("LOCATION")
}

// String implements fmt.Stringer
func (d *Device) String() string {
	if st := d.Response.ST(); st != "" {
		return fmt.Sprintf("Device <%s %s>", d.Addr(), st)
	}
	return fmt.Sprintf("Device <%s>", d.Addr())
}

// SetDescription seeds the description cache. It has no effect once the
// description has been resolved and reports whether doc was stored.
func (d *Device) SetDescription(doc []byte) bool {
	return d.description.set(doc)
}

// Description returns the device description document, fetching it from
// LOCATION on first use
func (d *Device) Description(ctx context.Context) ([]byte, error) {
	return d.description.get(ctx, func(ctx context.Context) ([]byte, error) {
		loc, err := d.Response.Location()
		if err != nil {
			return nil, NewDescriptionParseError("", "LOCATION", "SSDP response has no usable LOCATION header", err)
		}
		d.t.logger.Debug("Fetching device description", zap.String("location", loc.String()))
		return d.t.fetcher.Fetch(ctx, loc.String())
	})
}

func (d *Device) parsed(ctx context.Context) (*deviceDocument, error) {
	return d.document.get(ctx, func(ctx context.Context) (*deviceDocument, error) {
		doc, err := d.Description(ctx)
		if err != nil {
			return nil, err
		}
		return parseDeviceDocument(d.Location(), doc)
	})
}

// BaseURL returns the URL that service URLs are resolved against: <URLBase>
// when present and non-empty, otherwise the scheme and authority of LOCATION
func (d *Device) BaseURL(ctx context.Context) (string, error) {
	return d.baseURL.get(ctx, func(ctx context.Context) (string, error) {
		doc, err := d.parsed(ctx)
		if err != nil {
			return "", err
		}

		if doc.hasBase {
			u, err := url.Parse(doc.urlBase)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return "", NewDescriptionParseError(d.Location(), "URLBase",
					fmt.Sprintf("URLBase %q is not an absolute URL", doc.urlBase), err)
			}
			return doc.urlBase, nil
		}

		loc, err := d.Response.Location()
		if err != nil {
			return "", NewDescriptionParseError("", "LOCATION", "SSDP response has no usable LOCATION header", err)
		}
		return loc.Scheme + "://" + loc.Host, nil
	})
}

// Services returns the device's services in document order, including
// those of embedded devices. The list is resolved once.
func (d *Device) Services(ctx context.Context) ([]*Service, error) {
	services, err := d.services.get(ctx, func(ctx context.Context) ([]*Service, error) {
		doc, err := d.parsed(ctx)
		if err != nil {
			return nil, err
		}
		base, err := d.BaseURL(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]*Service, 0, len(doc.services))
		for _, xs := range doc.services {
			svc, err := newService(*xs.ServiceType, *xs.ServiceID, *xs.SCPDURL, *xs.ControlURL, *xs.EventSubURL, base, d.t)
			if err != nil {
				return nil, NewDescriptionParseError(d.Location(), "serviceType", err.Error(), err)
			}
			out = append(out, svc)
		}

		d.t.logger.Debug("Resolved device services",
			zap.String("device", d.Addr()),
			zap.Int("count", len(out)),
		)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(services), nil
}

// Service returns the first service matching name. name may be the full
// service type, the service ID, the type name ("WANIPConnection") or the
// short service ID ("WANIPConn1").
func (d *Device) Service(ctx context.Context, name string) (*Service, error) {
	services, err := d.Services(ctx)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if svc.matches(name) {
			return svc, nil
		}
	}
	return nil, NewServiceNotFoundError(name)
}

// Info returns the root device's identification from the description
func (d *Device) Info(ctx context.Context) (DeviceInfo, error) {
	doc, err := d.parsed(ctx)
	if err != nil {
		return DeviceInfo{}, err
	}
	if doc.root == nil {
		return DeviceInfo{}, newMissingElementError(d.Location(), "device", "root")
	}
	return doc.root.info(), nil
}
