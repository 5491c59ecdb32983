package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/upnpctl/internal/soap"
	"github.com/muurk/upnpctl/internal/ui"
	"github.com/muurk/upnpctl/internal/upnp"
)

func devicesTable(devices []*upnp.Device, names map[*upnp.Device]string) ui.Table {
	t := ui.Table{
		Title:   "Devices",
		Headers: []string{"Address", "Search Target", "Server", "Location"},
	}
	if names != nil {
		t.Headers = append(t.Headers, "Friendly Name")
	}
	for _, d := range devices {
		row := []string{d.Addr(), d.Response.ST(), d.Response.Server(), d.Location()}
		if names != nil {
			row = append(row, names[d])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func deviceDetails(info upnp.DeviceInfo, base string) []ui.Detail {
	details := []ui.Detail{
		{Key: "Friendly Name", Value: info.FriendlyName},
		{Key: "Device Type", Value: info.DeviceType},
		{Key: "Manufacturer", Value: info.Manufacturer},
		{Key: "Model", Value: strings.TrimSpace(info.ModelName + " " + info.ModelNumber)},
		{Key: "UDN", Value: info.UDN},
		{Key: "Base URL", Value: base},
	}
	if info.SerialNumber != "" {
		details = append(details, ui.Detail{Key: "Serial Number", Value: info.SerialNumber})
	}
	if info.PresentationURL != "" {
		details = append(details, ui.Detail{Key: "Presentation URL", Value: info.PresentationURL})
	}
	return details
}

func servicesTable(services []*upnp.Service) ui.Table {
	t := ui.Table{
		Title:   "Services",
		Headers: []string{"Service", "Version", "Service ID", "Control URL", "Template"},
	}
	for _, svc := range services {
		ctl, err := svc.ControlLocation()
		if err != nil {
			ctl = svc.ControlURL
		}
		t.Rows = append(t.Rows, []string{
			svc.TypeName(),
			strconv.Itoa(svc.Version()),
			svc.ShortID(),
			ctl,
			yesNo(hasTemplate(svc)),
		})
	}
	return t
}

func actionsTable(svc *upnp.Service, actions []*upnp.Action) ui.Table {
	supported := templateActions(svc)
	t := ui.Table{
		Title:   svc.TypeName() + " actions",
		Headers: []string{"Action", "In", "Out", "Supported"},
	}
	for _, a := range actions {
		t.Rows = append(t.Rows, []string{
			a.Name,
			argNames(a.In()),
			argNames(a.Out()),
			yesNo(supported[a.Name]),
		})
	}
	return t
}

func stateVariablesTable(svc *upnp.Service, vars []upnp.StateVariable) ui.Table {
	t := ui.Table{
		Title:   svc.TypeName() + " state variables",
		Headers: []string{"Name", "Type", "Default", "Events", "Allowed"},
	}
	for _, v := range vars {
		allowed := strings.Join(v.AllowedValues, ", ")
		if v.Range != nil {
			allowed = v.Range.Minimum + ".." + v.Range.Maximum
			if v.Range.Step != "" {
				allowed += " step " + v.Range.Step
			}
		}
		t.Rows = append(t.Rows, []string{v.Name, v.DataType, v.DefaultValue, yesNo(v.SendEvents), allowed})
	}
	return t
}

func templatesTable(infos []upnp.TemplateInfo, withActions bool) ui.Table {
	t := ui.Table{
		Title:   "Service templates",
		Headers: []string{"Service", "Version", "Actions", "Service Type"},
	}
	for _, info := range infos {
		actions := strconv.Itoa(len(info.Actions))
		if withActions {
			actions = strings.Join(info.Actions, ", ")
		}
		t.Rows = append(t.Rows, []string{info.TypeName, strconv.Itoa(info.Version), actions, info.ServiceType})
	}
	return t
}

func portMappingsTable(mappings []upnp.PortMapping) ui.Table {
	t := ui.Table{
		Title:   "Port mappings",
		Headers: []string{"Protocol", "External Port", "Internal Client", "Internal Port", "Enabled", "Lease", "Description"},
	}
	for _, m := range mappings {
		ext := strconv.Itoa(int(m.ExternalPort))
		if m.RemoteHost != "" {
			ext = m.RemoteHost + ":" + ext
		}
		t.Rows = append(t.Rows, []string{
			m.Protocol,
			ext,
			m.InternalClient,
			strconv.Itoa(int(m.InternalPort)),
			yesNo(m.Enabled),
			leaseString(m.LeaseDuration),
			m.Description,
		})
	}
	return t
}

// responseDetails lists the output arguments in SCPD order, then any
// values the device returned beyond those in name order
func responseDetails(action *upnp.Action, resp soap.Response) []ui.Detail {
	var details []ui.Detail
	seen := make(map[string]bool, len(resp))
	if action != nil {
		for _, arg := range action.Out() {
			if v, ok := resp[arg.Name]; ok {
				details = append(details, ui.Detail{Key: arg.Name, Value: v})
				seen[arg.Name] = true
			}
		}
	}

	var extra []string
	for k := range resp {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		details = append(details, ui.Detail{Key: k, Value: resp[k]})
	}
	return details
}

// templateActions returns the action names the registered template of svc
// implements
func templateActions(svc *upnp.Service) map[string]bool {
	out := make(map[string]bool)
	for _, info := range upnp.Registered() {
		if info.ServiceType == svc.TypeURN() && info.Version == svc.Version() {
			for _, name := range info.Actions {
				out[name] = true
			}
		}
	}
	return out
}

func hasTemplate(svc *upnp.Service) bool {
	_, err := upnp.LookupTemplate(svc.ServiceType)
	return err == nil
}

func argNames(args []upnp.Argument) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func leaseString(seconds uint32) string {
	if seconds == 0 {
		return "permanent"
	}
	return strconv.FormatUint(uint64(seconds), 10) + "s"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
