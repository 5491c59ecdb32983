package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/config"
	"github.com/muurk/upnpctl/internal/logging"
	"github.com/muurk/upnpctl/internal/soap"
	"github.com/muurk/upnpctl/internal/ssdp"
	"github.com/muurk/upnpctl/internal/ui"
	"github.com/muurk/upnpctl/internal/upnp"
	"github.com/muurk/upnpctl/internal/version"
)

// session wires the command line flags and the config file into a control point
type session struct {
	cfg    *config.Registry
	logger *zap.Logger
	opts   []upnp.Option
	cp     *upnp.ControlPoint
}

func newSession(cfg *config.Registry) (*session, error) {
	if cfg == nil {
		cfg = config.NewRegistry()
	}
	logger := logging.Named("upnpctl")

	userAgent := version.UserAgent()
	if cfg.ControlPoint != nil && cfg.ControlPoint.UserAgent != "" {
		userAgent = cfg.ControlPoint.UserAgent
	}

	fetcher := upnp.NewHTTPFetcher(&http.Client{Timeout: httpTimeout})
	fetcher.UserAgent = userAgent
	opts := []upnp.Option{
		upnp.WithFetcher(fetcher),
		upnp.WithSender(&soap.Client{Timeout: httpTimeout}),
	}

	d, err := newDiscoverer(cfg, userAgent)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		opts:   opts,
		cp:     upnp.NewControlPoint(d, opts...),
	}, nil
}

// newDiscoverer applies the control point identity and the search settings
func newDiscoverer(cfg *config.Registry, userAgent string) (*ssdp.Discoverer, error) {
	d := ssdp.NewDiscoverer()
	d.UserAgent = userAgent

	if id, err := cfg.ControlPointID(); err == nil {
		d.ControlPointID = id
	}
	if cfg.ControlPoint != nil {
		d.FriendlyName = cfg.ControlPoint.FriendlyName
	}

	name := ifaceName
	if cfg.Discovery != nil {
		if cfg.Discovery.TTL > 0 {
			d.TTL = cfg.Discovery.TTL
		}
		if name == "" {
			name = cfg.Discovery.Interface
		}
	}
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, upnp.NewInvalidArgumentError(fmt.Sprintf("interface %q: %v", name, err))
		}
		d.Interface = iface
	}
	return d, nil
}

// wait returns the discovery window: --timeout, then the config default
func (s *session) wait() time.Duration {
	if timeout > 0 {
		return timeout
	}
	return s.cfg.DiscoveryTimeout()
}

// discover runs one search with a spinner and records what answered
func (s *session) discover(ctx context.Context, headers map[string]string) ([]*upnp.Device, error) {
	merged := make(map[string]string)
	if s.cfg.Discovery != nil {
		for k, v := range s.cfg.Discovery.Headers {
			merged[k] = v
		}
	}
	for k, v := range headers {
		merged[k] = v
	}

	wait := s.wait()
	var devices []*upnp.Device
	label := fmt.Sprintf("Searching for UPnP devices (%s)...", wait)
	err := ui.RunWithSpinner(ctx, os.Stderr, label, func(ctx context.Context) error {
		var err error
		devices, err = s.cp.Discover(ctx, wait, merged)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.remember(devices)
	return devices, nil
}

// remember stores the devices in the config file unless --no-save is set
func (s *session) remember(devices []*upnp.Device) {
	if noSave || len(devices) == 0 {
		return
	}
	for _, d := range devices {
		key := d.Response.USN()
		if key == "" {
			key = d.Location()
		}
		s.cfg.RememberDevice(key, rememberedDevice(d))
	}
	if err := s.cfg.Save(); err != nil {
		s.logger.Warn("Failed to save discovered devices", zap.Error(err))
	}
}

func rememberedDevice(d *upnp.Device) config.Device {
	return config.Device{
		Location: d.Location(),
		ST:       d.Response.ST(),
		Server:   d.Response.Server(),
		Host:     d.Host,
		Port:     d.Port,
	}
}

// target returns the device a single-device command talks to
func (s *session) target(ctx context.Context) (*upnp.Device, error) {
	switch {
	case location != "":
		d, err := upnp.DeviceAt(location, s.opts...)
		if err != nil {
			return nil, err
		}
		s.cp.AddDevice(d)
		return d, s.cp.SelectDevice(d)

	case deviceKey != "":
		usn, known := s.cfg.FindDevice(deviceKey)
		if known == nil {
			return nil, upnp.NewInvalidArgumentError(
				fmt.Sprintf("no remembered device matches %q (run 'upnpctl discover' first)", deviceKey))
		}
		s.logger.Debug("Using remembered device", zap.String("usn", usn), zap.String("location", known.Location))
		d, err := upnp.DeviceAt(known.Location, s.opts...)
		if err != nil {
			return nil, err
		}
		s.cp.AddDevice(d)
		return d, s.cp.SelectDevice(d)
	}

	if _, err := s.discover(ctx, map[string]string{"ST": upnp.InternetGatewayDevice}); err != nil {
		return nil, err
	}
	return s.cp.SelectIGD()
}

// service returns the named service of the target device, or its WAN
// connection service when name is empty
func (s *session) service(ctx context.Context, name string) (*upnp.Device, *upnp.Service, error) {
	d, err := s.target(ctx)
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		svc, err := upnp.ConnectionService(ctx, d)
		return d, svc, err
	}
	svc, err := s.cp.SelectService(ctx, name)
	return d, svc, err
}
