package upnp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/soap"
)

type refKind int

const (
	refNone refKind = iota
	refName
	refHandle
)

// ActionRef identifies the action to execute, either by name or by a
// handle obtained from Service.Actions
type ActionRef struct {
	kind   refKind
	name   string
	handle *Action
}

// ByName refers to an action by its name
func ByName(name string) ActionRef {
	return ActionRef{kind: refName, name: name}
}

// ByHandle refers to an action by a handle from Service.Actions
func ByHandle(a *Action) ActionRef {
	return ActionRef{kind: refHandle, handle: a}
}

// Name returns the action name the reference resolves to
func (r ActionRef) Name() (string, error) {
	switch r.kind {
	case refName:
		if r.name == "" {
			return "", NewInvalidArgumentError("action name is empty")
		}
		return r.name, nil
	case refHandle:
		if r.handle == nil {
			return "", NewInvalidArgumentError("action handle is nil")
		}
		if r.handle.Name == "" {
			return "", NewInvalidArgumentError("action handle has no name")
		}
		return r.handle.Name, nil
	default:
		return "", NewInvalidArgumentError("action must be given by name or handle")
	}
}

// Arguments are the values supplied to an action
type Arguments struct {
	Positional []any
	Named      map[string]any
}

// Args builds positional arguments
func Args(values ...any) Arguments {
	return Arguments{Positional: values}
}

// Named builds named arguments from alternating name, value pairs. Names
// may be given as Go-style names ("externalPort") or wire names
// ("NewExternalPort"). An odd number of values or a non-string name is a
// programming error and panics; build arguments from user input with With.
func Named(pairs ...any) Arguments {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("upnp: Named called with %d values, want name, value pairs", len(pairs)))
	}
	named := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("upnp: Named argument %d is %T, want a string name", i, pairs[i]))
		}
		named[k] = pairs[i+1]
	}
	return Arguments{Named: named}
}

// With returns a copy of a with name set to value
func (a Arguments) With(name string, value any) Arguments {
	named := make(map[string]any, len(a.Named)+1)
	for k, v := range a.Named {
		named[k] = v
	}
	named[name] = value
	return Arguments{Positional: a.Positional, Named: named}
}

// Execute invokes an action on the device. The action must be declared by
// the live SCPD and implemented by the template registered for this exact
// service type and version. The output arguments are returned verbatim.
func (s *Service) Execute(ctx context.Context, ref ActionRef, args Arguments) (soap.Response, error) {
	name, err := ref.Name()
	if err != nil {
		return nil, err
	}

	action, err := s.Action(ctx, name)
	if err != nil {
		return nil, err
	}

	factory, err := LookupTemplate(s.ServiceType)
	if err != nil {
		return nil, err
	}

	tmpl := factory(Binding{Service: s, Action: action, Sender: s.t.sender, Logger: s.t.logger})
	fn, ok := tmpl.Actions()[name]
	if !ok {
		return nil, NewUnsupportedActionError(s.ServiceType, name)
	}

	resp, err := fn(ctx, args)
	if err != nil {
		s.t.logger.Debug("Action failed",
			zap.String("service", s.ServiceType),
			zap.String("action", name),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}
