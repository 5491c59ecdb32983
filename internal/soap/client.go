package soap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	goupnpsoap "github.com/huin/goupnp/soap"
	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/logging"
)

// Arg is one named input argument, already rendered to its wire form
type Arg struct {
	Name  string
	Value string
}

// Request is a single action invocation
type Request struct {
	// ControlURL is the absolute URL the envelope is posted to
	ControlURL string

	// ServiceType is the full service URN, used as the action namespace
	ServiceType string

	// Action is the action name (e.g., "GetExternalIPAddress")
	Action string

	// Args are the input arguments in the order they are serialized
	Args []Arg
}

// Response maps output argument names to their values as returned by the device
type Response map[string]string

// UnmarshalXML collects the child elements of an action response element
func (r *Response) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if *r == nil {
		*r = make(Response)
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return fmt.Errorf("decode output argument %q: %w", t.Name.Local, err)
			}
			(*r)[t.Name.Local] = value
		case xml.EndElement:
			return nil
		}
	}
}

// Sender posts action invocations to a device
type Sender interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Client is the default Sender, delegating envelope handling to goupnp
type Client struct {
	// Timeout bounds each HTTP exchange (0 = no limit beyond the context)
	Timeout time.Duration

	// Logger receives one entry per invocation (nil = global logger)
	Logger *zap.Logger
}

// NewClient creates a SOAP client
func NewClient() *Client {
	return &Client{}
}

// Send performs the invocation and returns the output arguments verbatim.
// A fault returned by the device is reported as *FaultError.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	endpoint, err := url.Parse(req.ControlURL)
	if err != nil {
		return nil, fmt.Errorf("invalid control URL %q: %w", req.ControlURL, err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("control URL %q is not absolute", req.ControlURL)
	}

	in, err := requestStruct(req.Args)
	if err != nil {
		return nil, err
	}

	log := c.Logger
	if log == nil {
		log = logging.Named("soap")
	}
	logging.LogSOAPCall(log, req.ControlURL, req.ServiceType, req.Action, len(req.Args))

	client := goupnpsoap.NewSOAPClient(*endpoint)
	client.HTTPClient.Timeout = c.Timeout
	out := make(Response)
	if err := client.PerformActionCtx(ctx, req.ServiceType, req.Action, in, &out); err != nil {
		var fault *goupnpsoap.SOAPFaultError
		if errors.As(err, &fault) {
			return nil, newFaultError(fault)
		}
		return nil, fmt.Errorf("%s#%s: %w", req.ServiceType, req.Action, err)
	}

	return out, nil
}

// requestStruct builds the string-only struct goupnp serializes, one field
// per argument in order. Argument names become exported field names, so
// they must be valid Go identifiers starting with an upper-case letter,
// which holds for every UPnP argument ("NewExternalPort", "NewProtocol", ...).
func requestStruct(args []Arg) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	fields := make([]reflect.StructField, len(args))
	seen := make(map[string]bool, len(args))
	for i, arg := range args {
		if !isExportedIdent(arg.Name) {
			return nil, fmt.Errorf("argument name %q cannot be serialized", arg.Name)
		}
		if seen[arg.Name] {
			return nil, fmt.Errorf("argument %q given twice", arg.Name)
		}
		seen[arg.Name] = true
		fields[i] = reflect.StructField{
			Name: arg.Name,
			Type: reflect.TypeOf(""),
			Tag:  reflect.StructTag(`soap:"` + arg.Name + `"`),
		}
	}

	value := reflect.New(reflect.StructOf(fields))
	for i, arg := range args {
		value.Elem().Field(i).SetString(arg.Value)
	}
	return value.Interface(), nil
}

func isExportedIdent(name string) bool {
	if name == "" || name[0] < 'A' || name[0] > 'Z' {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	}) < 0
}
