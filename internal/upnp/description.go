package upnp

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Wire structures. Required elements are pointers so that an absent
// element can be told apart from an empty one.

type xmlRoot struct {
	URLBase *string    `xml:"URLBase"`
	Device  *xmlDevice `xml:"device"`
}

type xmlDevice struct {
	DeviceType       string      `xml:"deviceType"`
	FriendlyName     string      `xml:"friendlyName"`
	Manufacturer     string      `xml:"manufacturer"`
	ManufacturerURL  string      `xml:"manufacturerURL"`
	ModelDescription string      `xml:"modelDescription"`
	ModelName        string      `xml:"modelName"`
	ModelNumber      string      `xml:"modelNumber"`
	SerialNumber     string      `xml:"serialNumber"`
	UDN              string      `xml:"UDN"`
	PresentationURL  string      `xml:"presentationURL"`
	Devices          []xmlDevice `xml:"deviceList>device"`
}

type xmlService struct {
	ServiceType *string `xml:"serviceType"`
	ServiceID   *string `xml:"serviceId"`
	SCPDURL     *string `xml:"SCPDURL"`
	ControlURL  *string `xml:"controlURL"`
	EventSubURL *string `xml:"eventSubURL"`
}

type xmlSCPD struct {
	Actions        []xmlAction        `xml:"actionList>action"`
	StateVariables []xmlStateVariable `xml:"serviceStateTable>stateVariable"`
}

type xmlAction struct {
	Name         *string          `xml:"name"`
	ArgumentList *xmlArgumentList `xml:"argumentList"`
}

type xmlArgumentList struct {
	Arguments []xmlArgument `xml:"argument"`
}

type xmlArgument struct {
	Name                 *string   `xml:"name"`
	Direction            *string   `xml:"direction"`
	Retval               *struct{} `xml:"retval"`
	RelatedStateVariable *string   `xml:"relatedStateVariable"`
}

type xmlStateVariable struct {
	SendEvents    string   `xml:"sendEvents,attr"`
	Multicast     string   `xml:"multicast,attr"`
	Name          *string  `xml:"name"`
	DataType      *string  `xml:"dataType"`
	DefaultValue  string   `xml:"defaultValue"`
	AllowedValues []string `xml:"allowedValueList>allowedValue"`
	AllowedRange  *struct {
		Minimum string `xml:"minimum"`
		Maximum string `xml:"maximum"`
		Step    string `xml:"step"`
	} `xml:"allowedValueRange"`
}

// deviceDocument is a parsed device description
type deviceDocument struct {
	urlBase  string
	hasBase  bool
	services []xmlService
	root     *xmlDevice
}

func newDecoder(doc []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(doc))
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// parseDeviceDocument decodes a device description. Services are collected
// from every <service> element in document order, so services of embedded
// devices follow the order in which they appear.
func parseDeviceDocument(location string, doc []byte) (*deviceDocument, error) {
	var root xmlRoot
	if err := newDecoder(doc).Decode(&root); err != nil {
		return nil, NewDescriptionParseError(location, "", "malformed device description", err)
	}

	parsed := &deviceDocument{root: root.Device}
	if root.URLBase != nil {
		parsed.urlBase = strings.TrimSpace(*root.URLBase)
		parsed.hasBase = parsed.urlBase != ""
	}

	d := newDecoder(doc)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewDescriptionParseError(location, "", "malformed device description", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "service" {
			continue
		}

		var svc xmlService
		if err := d.DecodeElement(&svc, &start); err != nil {
			return nil, NewDescriptionParseError(location, "service", "malformed <service> element", err)
		}
		if err := svc.validate(location); err != nil {
			return nil, err
		}
		parsed.services = append(parsed.services, svc)
	}

	return parsed, nil
}

func (s *xmlService) validate(location string) error {
	required := []struct {
		name  string
		value *string
	}{
		{"serviceType", s.ServiceType},
		{"serviceId", s.ServiceID},
		{"SCPDURL", s.SCPDURL},
		{"controlURL", s.ControlURL},
		{"eventSubURL", s.EventSubURL},
	}
	for _, r := range required {
		if r.value == nil {
			return newMissingElementError(location, r.name, "service")
		}
		*r.value = strings.TrimSpace(*r.value)
	}
	return nil
}

// scpdDocument is a parsed service description
type scpdDocument struct {
	actions        []*Action
	stateVariables []StateVariable
}

// parseSCPD decodes a service description. When two actions share a name
// the first declaration is kept.
func parseSCPD(location string, doc []byte) (*scpdDocument, error) {
	var raw xmlSCPD
	if err := newDecoder(doc).Decode(&raw); err != nil {
		return nil, NewDescriptionParseError(location, "", "malformed service description", err)
	}

	parsed := &scpdDocument{}
	seen := make(map[string]bool, len(raw.Actions))
	for _, xa := range raw.Actions {
		if xa.Name == nil {
			return nil, newMissingElementError(location, "name", "action")
		}
		action := &Action{Name: strings.TrimSpace(*xa.Name)}

		if xa.ArgumentList != nil {
			for _, xarg := range xa.ArgumentList.Arguments {
				arg, err := xarg.toArgument(location)
				if err != nil {
					return nil, err
				}
				action.Arguments = append(action.Arguments, arg)
			}
		}

		if seen[action.Name] {
			continue
		}
		seen[action.Name] = true
		parsed.actions = append(parsed.actions, action)
	}

	for _, xv := range raw.StateVariables {
		if xv.Name == nil {
			return nil, newMissingElementError(location, "name", "stateVariable")
		}
		if xv.DataType == nil {
			return nil, newMissingElementError(location, "dataType", "stateVariable")
		}
		sv := StateVariable{
			Name:          strings.TrimSpace(*xv.Name),
			DataType:      strings.TrimSpace(*xv.DataType),
			DefaultValue:  strings.TrimSpace(xv.DefaultValue),
			SendEvents:    !strings.EqualFold(strings.TrimSpace(xv.SendEvents), "no"),
			AllowedValues: trimAll(xv.AllowedValues),
		}
		if xv.AllowedRange != nil {
			sv.Range = &ValueRange{
				Minimum: strings.TrimSpace(xv.AllowedRange.Minimum),
				Maximum: strings.TrimSpace(xv.AllowedRange.Maximum),
				Step:    strings.TrimSpace(xv.AllowedRange.Step),
			}
		}
		parsed.stateVariables = append(parsed.stateVariables, sv)
	}

	return parsed, nil
}

func (x xmlArgument) toArgument(location string) (Argument, error) {
	if x.Name == nil {
		return Argument{}, newMissingElementError(location, "name", "argument")
	}
	if x.Direction == nil {
		return Argument{}, newMissingElementError(location, "direction", "argument")
	}
	if x.RelatedStateVariable == nil {
		return Argument{}, newMissingElementError(location, "relatedStateVariable", "argument")
	}

	name := strings.TrimSpace(*x.Name)
	var dir Direction
	switch strings.ToLower(strings.TrimSpace(*x.Direction)) {
	case "in":
		dir = DirectionIn
	case "out":
		dir = DirectionOut
	default:
		return Argument{}, NewDescriptionParseError(location, "direction",
			"argument "+name+" has direction "+*x.Direction+", want in or out", nil)
	}

	return Argument{
		Name:                 name,
		Direction:            dir,
		IsReturnValue:        x.Retval != nil,
		RelatedStateVariable: strings.TrimSpace(*x.RelatedStateVariable),
	}, nil
}

func (x *xmlDevice) info() DeviceInfo {
	info := DeviceInfo{
		DeviceType:       strings.TrimSpace(x.DeviceType),
		FriendlyName:     strings.TrimSpace(x.FriendlyName),
		Manufacturer:     strings.TrimSpace(x.Manufacturer),
		ManufacturerURL:  strings.TrimSpace(x.ManufacturerURL),
		ModelDescription: strings.TrimSpace(x.ModelDescription),
		ModelName:        strings.TrimSpace(x.ModelName),
		ModelNumber:      strings.TrimSpace(x.ModelNumber),
		SerialNumber:     strings.TrimSpace(x.SerialNumber),
		UDN:              strings.TrimSpace(x.UDN),
		PresentationURL:  strings.TrimSpace(x.PresentationURL),
	}
	for i := range x.Devices {
		info.Devices = append(info.Devices, x.Devices[i].info())
	}
	return info
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
