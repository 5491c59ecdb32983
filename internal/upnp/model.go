package upnp

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is the direction of an action argument
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Argument is one declared parameter of an action
type Argument struct {
	Name                 string
	Direction            Direction
	IsReturnValue        bool
	RelatedStateVariable string
}

// Action is an operation declared in a service's SCPD. Arguments keep
// document order.
type Action struct {
	Name      string
	Arguments []Argument
}

// HasArguments reports whether the action declares an argument list
func (a *Action) HasArguments() bool {
	return len(a.Arguments) > 0
}

// In returns the input arguments in document order
func (a *Action) In() []Argument {
	return a.filter(DirectionIn)
}

// Out returns the output arguments in document order
func (a *Action) Out() []Argument {
	return a.filter(DirectionOut)
}

func (a *Action) filter(dir Direction) []Argument {
	var out []Argument
	for _, arg := range a.Arguments {
		if arg.Direction == dir {
			out = append(out, arg)
		}
	}
	return out
}

// String renders the action as a call signature, e.g. "AddPortMapping(NewRemoteHost, ...) -> ()"
func (a *Action) String() string {
	names := func(args []Argument) string {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = arg.Name
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s(%s) -> (%s)", a.Name, names(a.In()), names(a.Out()))
}

// StateVariable is an entry of a service's state table. It is
// informational only; arguments are not type-checked against it.
type StateVariable struct {
	Name          string
	DataType      string
	DefaultValue  string
	SendEvents    bool
	AllowedValues []string
	Range         *ValueRange
}

// ValueRange is an allowedValueRange declaration
type ValueRange struct {
	Minimum string
	Maximum string
	Step    string
}

// DeviceInfo describes a device from its description document
type DeviceInfo struct {
	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  string
	ModelDescription string
	ModelName        string
	ModelNumber      string
	SerialNumber     string
	UDN              string
	PresentationURL  string

	// Devices are the embedded devices, in document order
	Devices []DeviceInfo
}

// serviceURN is a decomposed "urn:<domain>:service:<type>:<version>"
type serviceURN struct {
	domain   string
	typeName string
	version  int
}

func parseServiceURN(serviceType string) (serviceURN, error) {
	parts := strings.Split(serviceType, ":")
	if len(parts) != 5 || parts[0] != "urn" || parts[2] != "service" || parts[3] == "" {
		return serviceURN{}, fmt.Errorf("service type %q is not of the form urn:<domain>:service:<type>:<version>", serviceType)
	}
	version, err := strconv.Atoi(parts[4])
	if err != nil || version < 1 {
		return serviceURN{}, fmt.Errorf("service type %q has version %q, want a positive integer", serviceType, parts[4])
	}
	return serviceURN{domain: parts[1], typeName: parts[3], version: version}, nil
}

// unversioned returns the service type without its version segment
func (u serviceURN) unversioned() string {
	return "urn:" + u.domain + ":service:" + u.typeName
}

// lastSegment returns the text after the final colon
func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
