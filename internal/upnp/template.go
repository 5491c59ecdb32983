package upnp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	goupnpsoap "github.com/huin/goupnp/soap"
	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/soap"
)

// ActionFunc performs one action with caller-supplied arguments and returns
// the device's output arguments verbatim
type ActionFunc func(ctx context.Context, args Arguments) (soap.Response, error)

// Template is the executable action set of one service type at one version
type Template interface {
	Actions() map[string]ActionFunc
}

// Binding is what a template instance is bound to for a single invocation
type Binding struct {
	Service *Service
	Action  *Action
	Sender  soap.Sender
	Logger  *zap.Logger
}

// TemplateFactory creates a template instance bound to b
type TemplateFactory func(b Binding) Template

// forumServices prefixes the service types standardized by the UPnP Forum
const forumServices = "urn:schemas-upnp-org:service:"

// TemplateInfo describes a registered template
type TemplateInfo struct {
	ServiceType string // without the version ("urn:schemas-upnp-org:service:WANIPConnection")
	TypeName    string
	Version     int
	Actions     []string
}

// registry maps unversioned service type -> version -> factory. The domain
// is part of the key: a vendor service that reuses a forum type name is a
// different service. Written only from package init functions.
var registry = map[string]map[int]registration{}

type registration struct {
	factory TemplateFactory
	actions actionSet
}

func register(serviceType string, version int, actions actionSet, factory TemplateFactory) {
	versions, ok := registry[serviceType]
	if !ok {
		versions = map[int]registration{}
		registry[serviceType] = versions
	}
	if _, dup := versions[version]; dup {
		panic(fmt.Sprintf("upnp: template %s:%d registered twice", serviceType, version))
	}
	versions[version] = registration{factory: factory, actions: actions}
}

// LookupTemplate returns the factory registered for serviceType, a full
// versioned service type such as
// "urn:schemas-upnp-org:service:WANIPConnection:1". Domain, type and
// version must all match; versions are never substituted for one another.
func LookupTemplate(serviceType string) (TemplateFactory, error) {
	urn, err := parseServiceURN(serviceType)
	if err != nil {
		return nil, NewInvalidArgumentError(err.Error())
	}
	versions, ok := registry[urn.unversioned()]
	if !ok {
		return nil, NewUnsupportedServiceError(serviceType)
	}
	reg, ok := versions[urn.version]
	if !ok {
		available := make([]int, 0, len(versions))
		for v := range versions {
			available = append(available, v)
		}
		sort.Ints(available)
		return nil, NewUnsupportedServiceVersionError(serviceType, urn.version, available)
	}
	return reg.factory, nil
}

// Registered lists every registered template, sorted by service type and version
func Registered() []TemplateInfo {
	var out []TemplateInfo
	for serviceType, versions := range registry {
		for version, reg := range versions {
			names := make([]string, 0, len(reg.actions))
			for name := range reg.actions {
				names = append(names, name)
			}
			sort.Strings(names)
			out = append(out, TemplateInfo{
				ServiceType: serviceType,
				TypeName:    lastSegment(serviceType),
				Version:     version,
				Actions:     names,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServiceType != out[j].ServiceType {
			return out[i].ServiceType < out[j].ServiceType
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// valueType is the SOAP data type of an action parameter
type valueType int

const (
	typeString valueType = iota
	typeUI2
	typeUI4
	typeBoolean
)

func (t valueType) String() string {
	switch t {
	case typeUI2:
		return "ui2"
	case typeUI4:
		return "ui4"
	case typeBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// param is one input parameter of a template action
type param struct {
	name       string // Go-style name accepted as a named argument ("externalPort")
	wire       string // argument name on the wire ("NewExternalPort")
	typ        valueType
	def        any
	hasDefault bool
}

func in(name, wire string, typ valueType) param {
	return param{name: name, wire: wire, typ: typ}
}

// or gives the parameter a default, making it optional
func (p param) or(def any) param {
	p.def = def
	p.hasDefault = true
	return p
}

// actionSpec is the fixed parameter table of one action
type actionSpec struct {
	params []param
}

// actionSet maps action names to their parameter tables
type actionSet map[string]actionSpec

// merge returns a new set containing the actions of every set; later sets
// override earlier ones
func merge(sets ...actionSet) actionSet {
	out := actionSet{}
	for _, set := range sets {
		for name, spec := range set {
			out[name] = spec
		}
	}
	return out
}

// bind turns an action set into callables that delegate to b.Sender
func (b Binding) bind(set actionSet) map[string]ActionFunc {
	out := make(map[string]ActionFunc, len(set))
	for name, spec := range set {
		name, spec := name, spec
		out[name] = func(ctx context.Context, args Arguments) (soap.Response, error) {
			return b.call(ctx, name, spec, args)
		}
	}
	return out
}

func (b Binding) call(ctx context.Context, action string, spec actionSpec, args Arguments) (soap.Response, error) {
	var live *Action
	if b.Action != nil && b.Action.Name == action {
		live = b.Action
	}

	wireArgs, err := bindArguments(action, spec.params, live, args)
	if err != nil {
		return nil, err
	}

	controlURL, err := b.Service.ControlLocation()
	if err != nil {
		return nil, err
	}

	log := b.Logger
	if log == nil {
		log = b.Service.t.logger
	}
	log.Debug("Dispatching action",
		zap.String("service", b.Service.ServiceType),
		zap.String("action", action),
		zap.Int("args", len(wireArgs)),
	)

	resp, err := b.Sender.Send(ctx, soap.Request{
		ControlURL:  controlURL,
		ServiceType: b.Service.ServiceType,
		Action:      action,
		Args:        wireArgs,
	})
	if err != nil {
		var fault *soap.FaultError
		if errors.As(err, &fault) {
			return nil, NewSOAPError(b.Service.ServiceType, action, fault.Description, fault.Code, err)
		}
		return nil, NewTransportError(fmt.Sprintf("%s request failed", action), controlURL, err)
	}
	return resp, nil
}

// bindArguments matches positional and named values to params and renders
// them in wire order. Positional values follow the live SCPD's in-argument
// order when it declares any, otherwise the template's order.
func bindArguments(action string, params []param, live *Action, args Arguments) ([]soap.Arg, error) {
	order := orderParams(params, live)

	if len(args.Positional) > len(order) {
		return nil, NewArgumentMismatchError(action,
			fmt.Sprintf("takes at most %d arguments, got %d", len(order), len(args.Positional)), nil)
	}

	values := make([]any, len(order))
	bound := make([]bool, len(order))
	for i, v := range args.Positional {
		values[i] = v
		bound[i] = true
	}

	names := make([]string, 0, len(args.Named))
	for k := range args.Named {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		i := indexOfParam(order, k)
		if i < 0 {
			return nil, NewArgumentMismatchError(action, fmt.Sprintf("unknown argument %q", k), nil)
		}
		if bound[i] {
			return nil, NewArgumentMismatchError(action,
				fmt.Sprintf("argument %q given more than once", order[i].name), nil)
		}
		values[i] = args.Named[k]
		bound[i] = true
	}

	out := make([]soap.Arg, 0, len(order))
	for i, p := range order {
		v := values[i]
		if !bound[i] {
			if !p.hasDefault {
				return nil, NewArgumentMismatchError(action,
					fmt.Sprintf("missing required argument %q (%s)", p.name, p.wire), nil)
			}
			v = p.def
		}
		s, err := marshalValue(p.typ, v)
		if err != nil {
			return nil, NewArgumentMismatchError(action, fmt.Sprintf("argument %q", p.name), err)
		}
		out = append(out, soap.Arg{Name: p.wire, Value: s})
	}
	return out, nil
}

func orderParams(params []param, live *Action) []param {
	if live == nil {
		return params
	}
	liveIn := live.In()
	if len(liveIn) == 0 {
		return params
	}

	out := make([]param, 0, len(params))
	used := make([]bool, len(params))
	for _, arg := range liveIn {
		for i, p := range params {
			if !used[i] && p.wire == arg.Name {
				out = append(out, p)
				used[i] = true
				break
			}
		}
	}
	for i, p := range params {
		if !used[i] {
			out = append(out, p)
		}
	}
	return out
}

func indexOfParam(params []param, key string) int {
	for i, p := range params {
		if p.name == key || p.wire == key {
			return i
		}
	}
	return -1
}

// marshalValue renders v in the wire form of typ. Strings are accepted for
// every type and parsed with the matching unmarshaler.
func marshalValue(typ valueType, v any) (string, error) {
	switch typ {
	case typeString:
		switch s := v.(type) {
		case string:
			return goupnpsoap.MarshalString(s)
		case fmt.Stringer:
			return goupnpsoap.MarshalString(s.String())
		}

	case typeBoolean:
		switch b := v.(type) {
		case bool:
			return goupnpsoap.MarshalBoolean(b)
		case string:
			parsed, err := goupnpsoap.UnmarshalBoolean(strings.TrimSpace(b))
			if err != nil {
				return "", err
			}
			return goupnpsoap.MarshalBoolean(parsed)
		}

	case typeUI2:
		if s, ok := v.(string); ok {
			parsed, err := goupnpsoap.UnmarshalUi2(strings.TrimSpace(s))
			if err != nil {
				return "", err
			}
			return goupnpsoap.MarshalUi2(parsed)
		}
		if n, ok := toInt64(v); ok {
			if n < 0 || n > math.MaxUint16 {
				return "", fmt.Errorf("value %d out of range for ui2", n)
			}
			return goupnpsoap.MarshalUi2(uint16(n))
		}

	case typeUI4:
		if s, ok := v.(string); ok {
			parsed, err := goupnpsoap.UnmarshalUi4(strings.TrimSpace(s))
			if err != nil {
				return "", err
			}
			return goupnpsoap.MarshalUi4(parsed)
		}
		if n, ok := toInt64(v); ok {
			if n < 0 || n > math.MaxUint32 {
				return "", fmt.Errorf("value %d out of range for ui4", n)
			}
			return goupnpsoap.MarshalUi4(uint32(n))
		}
	}

	return "", fmt.Errorf("cannot use %T as %s", v, typ)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
