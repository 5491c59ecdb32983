package upnp

import (
	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/logging"
	"github.com/muurk/upnpctl/internal/soap"
)

// transport bundles the collaborators shared by a device and its services
type transport struct {
	fetcher Fetcher
	sender  soap.Sender
	logger  *zap.Logger
}

// Option configures a Device, Service or ControlPoint
type Option func(*transport)

// WithFetcher sets the fetcher used for description documents
func WithFetcher(f Fetcher) Option {
	return func(t *transport) { t.fetcher = f }
}

// WithSender sets the SOAP sender used for action invocation
func WithSender(s soap.Sender) Option {
	return func(t *transport) { t.sender = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(t *transport) { t.logger = l }
}

func newTransport(opts []Option) *transport {
	t := &transport{}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.Named("upnp")
	}
	if t.fetcher == nil {
		t.fetcher = &HTTPFetcher{Logger: t.logger}
	}
	if t.sender == nil {
		t.sender = &soap.Client{Logger: t.logger}
	}
	return t
}
