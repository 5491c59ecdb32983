package upnp

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/soap"
	"github.com/muurk/upnpctl/internal/ssdp"
)

// InternetGatewayDevice is the device type SelectIGD looks for
const InternetGatewayDevice = "urn:schemas-upnp-org:device:InternetGatewayDevice:1"

// Discoverer performs an SSDP search
type Discoverer interface {
	Discover(ctx context.Context, req ssdp.SearchRequest) ([]ssdp.Response, error)
}

// ControlPoint holds the devices of a discovery session and the current
// device and service selection
type ControlPoint struct {
	discoverer Discoverer
	opts       []Option
	logger     *zap.Logger

	devices         []*Device
	selectedDevice  *Device
	selectedService *Service
}

// NewControlPoint creates a control point. opts are applied to every device
// it creates.
func NewControlPoint(d Discoverer, opts ...Option) *ControlPoint {
	return &ControlPoint{
		discoverer: d,
		opts:       opts,
		logger:     newTransport(opts).logger,
	}
}

// Discover searches for devices for the window wait and appends them to the
// device list. An "ST" entry in headers sets the search target, which
// otherwise defaults to ssdp:all. It returns the devices found by this
// search only.
func (cp *ControlPoint) Discover(ctx context.Context, wait time.Duration, headers map[string]string) ([]*Device, error) {
	req := ssdp.SearchRequest{Target: ssdp.SearchAll, Wait: wait}
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "St" {
			req.Target = v
			continue
		}
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers[k] = v
	}
	return cp.Search(ctx, req)
}

// Search runs one SSDP search and appends the responders to the device list
func (cp *ControlPoint) Search(ctx context.Context, req ssdp.SearchRequest) ([]*Device, error) {
	responses, err := cp.discoverer.Discover(ctx, req)
	if err != nil {
		return nil, NewDiscoveryError(err)
	}

	found := make([]*Device, 0, len(responses))
	for _, resp := range responses {
		found = append(found, NewDevice(resp, cp.opts...))
	}
	cp.devices = append(cp.devices, found...)

	cp.logger.Info("Discovery finished",
		zap.String("target", req.Target),
		zap.Int("responses", len(found)),
		zap.Int("devices", len(cp.devices)),
	)
	return found, nil
}

// AddDevice appends a device obtained without discovery (e.g., DeviceAt)
func (cp *ControlPoint) AddDevice(d *Device) {
	cp.devices = append(cp.devices, d)
}

// Devices returns every device found so far
func (cp *ControlPoint) Devices() []*Device {
	return slices.Clone(cp.devices)
}

// SelectIGD selects the single device whose ST header is
// InternetGatewayDevice. Zero or several matches are errors.
func (cp *ControlPoint) SelectIGD() (*Device, error) {
	igds, err := FilterBy(cp.devices, Filters{
		FilterHeaders: map[string]string{"ST": InternetGatewayDevice},
	})
	if err != nil {
		return nil, err
	}

	switch len(igds) {
	case 0:
		return nil, &Error{Kind: KindNoIGDFound, Message: "no device answered as " + InternetGatewayDevice}
	case 1:
		cp.selectDevice(igds[0])
		return igds[0], nil
	default:
		addrs := make([]string, len(igds))
		for i, d := range igds {
			addrs[i] = d.Addr()
		}
		return nil, &Error{
			Kind:    KindMultipleIGDsFound,
			Message: "several devices answered as " + InternetGatewayDevice + ": " + strings.Join(addrs, ", "),
		}
	}
}

// SelectDevice makes d the selected device and clears the service selection
func (cp *ControlPoint) SelectDevice(d *Device) error {
	if d == nil {
		return NewInvalidArgumentError("device is nil")
	}
	cp.selectDevice(d)
	return nil
}

func (cp *ControlPoint) selectDevice(d *Device) {
	cp.selectedDevice = d
	cp.selectedService = nil
	cp.logger.Debug("Device selected", zap.String("device", d.String()))
}

// SelectedDevice returns the selected device
func (cp *ControlPoint) SelectedDevice() (*Device, error) {
	if cp.selectedDevice == nil {
		return nil, &Error{Kind: KindNoDeviceSelected, Message: "no device selected"}
	}
	return cp.selectedDevice, nil
}

// SelectService selects a service of the selected device by name (see Device.Service)
func (cp *ControlPoint) SelectService(ctx context.Context, name string) (*Service, error) {
	d, err := cp.SelectedDevice()
	if err != nil {
		return nil, err
	}
	svc, err := d.Service(ctx, name)
	if err != nil {
		return nil, err
	}
	cp.selectedService = svc
	cp.logger.Debug("Service selected", zap.String("service", svc.ServiceType))
	return svc, nil
}

// SelectedService returns the selected service
func (cp *ControlPoint) SelectedService() (*Service, error) {
	if cp.selectedService == nil {
		return nil, &Error{Kind: KindNoServiceSelected, Message: "no service selected"}
	}
	return cp.selectedService, nil
}

// Execute invokes an action on the selected service
func (cp *ControlPoint) Execute(ctx context.Context, ref ActionRef, args Arguments) (soap.Response, error) {
	svc, err := cp.SelectedService()
	if err != nil {
		return nil, err
	}
	return svc.Execute(ctx, ref, args)
}
