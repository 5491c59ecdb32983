package upnp

import (
	"context"
	"errors"
	"fmt"

	goupnpsoap "github.com/huin/goupnp/soap"
)

// maxPortMappings bounds the GetGenericPortMappingEntry walk
const maxPortMappings = 1024

// UPnP error codes that end a port mapping walk
const (
	errCodeInvalidArgs        = 402
	errCodeArrayIndexInvalid  = 713
	errCodeNoSuchEntryInArray = 714
)

// PortMapping is one NAT port mapping entry of a gateway connection service
type PortMapping struct {
	RemoteHost     string
	ExternalPort   uint16
	Protocol       string
	InternalPort   uint16
	InternalClient string
	Enabled        bool
	Description    string
	LeaseDuration  uint32
}

// Arguments returns the mapping as named AddPortMapping arguments
func (m PortMapping) Arguments() Arguments {
	return Named(
		"remoteHost", m.RemoteHost,
		"externalPort", m.ExternalPort,
		"protocol", m.Protocol,
		"internalPort", m.InternalPort,
		"internalClient", m.InternalClient,
		"enabled", m.Enabled,
		"description", m.Description,
		"leaseDuration", m.LeaseDuration,
	)
}

// ConnectionService returns the first UPnP Forum WANIPConnection or
// WANPPPConnection service of d
func ConnectionService(ctx context.Context, d *Device) (*Service, error) {
	services, err := d.Services(ctx)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		switch svc.TypeURN() {
		case forumServices + "WANIPConnection", forumServices + "WANPPPConnection":
			return svc, nil
		}
	}
	return nil, NewServiceNotFoundError("WANIPConnection or WANPPPConnection")
}

// ExternalIPAddress returns the gateway's external address
func ExternalIPAddress(ctx context.Context, svc *Service) (string, error) {
	resp, err := svc.Execute(ctx, ByName("GetExternalIPAddress"), Arguments{})
	if err != nil {
		return "", err
	}
	return resp["NewExternalIPAddress"], nil
}

// AddPortMapping creates or replaces a port mapping
func AddPortMapping(ctx context.Context, svc *Service, m PortMapping) error {
	_, err := svc.Execute(ctx, ByName("AddPortMapping"), m.Arguments())
	return err
}

// DeletePortMapping removes the mapping for externalPort and protocol
func DeletePortMapping(ctx context.Context, svc *Service, externalPort uint16, protocol string) error {
	_, err := svc.Execute(ctx, ByName("DeletePortMapping"),
		Named("externalPort", externalPort, "protocol", protocol))
	return err
}

// PortMappings lists the gateway's mappings by index until the device
// reports the end of the table
func PortMappings(ctx context.Context, svc *Service) ([]PortMapping, error) {
	var out []PortMapping
	for i := 0; i < maxPortMappings; i++ {
		resp, err := svc.Execute(ctx, ByName("GetGenericPortMappingEntry"), Named("index", i))
		if err != nil {
			var e *Error
			if errors.As(err, &e) && e.Kind == KindSOAP {
				switch e.Code {
				case errCodeArrayIndexInvalid, errCodeNoSuchEntryInArray, errCodeInvalidArgs:
					return out, nil
				}
			}
			return out, err
		}
		m, err := portMappingFrom(resp)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// portMappingFrom decodes a GetGenericPortMappingEntry response. Both
// ports must be valid ui2 values; an absent NewEnabled or
// NewLeaseDuration reads as false and 0.
func portMappingFrom(resp map[string]string) (PortMapping, error) {
	m := PortMapping{
		RemoteHost:     resp["NewRemoteHost"],
		Protocol:       resp["NewProtocol"],
		InternalClient: resp["NewInternalClient"],
		Description:    resp["NewPortMappingDescription"],
	}

	var err error
	if m.ExternalPort, err = goupnpsoap.UnmarshalUi2(resp["NewExternalPort"]); err != nil {
		return PortMapping{}, malformedEntry("NewExternalPort", resp["NewExternalPort"], err)
	}
	if m.InternalPort, err = goupnpsoap.UnmarshalUi2(resp["NewInternalPort"]); err != nil {
		return PortMapping{}, malformedEntry("NewInternalPort", resp["NewInternalPort"], err)
	}
	if v, ok := resp["NewEnabled"]; ok && v != "" {
		if m.Enabled, err = goupnpsoap.UnmarshalBoolean(v); err != nil {
			return PortMapping{}, malformedEntry("NewEnabled", v, err)
		}
	}
	if v, ok := resp["NewLeaseDuration"]; ok && v != "" {
		if m.LeaseDuration, err = goupnpsoap.UnmarshalUi4(v); err != nil {
			return PortMapping{}, malformedEntry("NewLeaseDuration", v, err)
		}
	}
	return m, nil
}

func malformedEntry(name, value string, err error) *Error {
	return NewArgumentMismatchError("GetGenericPortMappingEntry",
		fmt.Sprintf("device returned %s=%q", name, value), err)
}
