package upnp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filter keys understood by FilterBy
const (
	FilterHost    = "host"
	FilterPort    = "port"
	FilterHeaders = "headers"
)

// Filters are conjunctive device predicates keyed by FilterHost (string),
// FilterPort (int) and FilterHeaders (map[string]string)
type Filters map[string]any

// FilterBy returns the devices that satisfy every filter, in input order.
// Header names are matched case-insensitively and values exactly.
func FilterBy(devices []*Device, filters Filters) ([]*Device, error) {
	var (
		host, hasHost = "", false
		port, hasPort = 0, false
		headers       map[string]string
	)

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := filters[k]
		switch k {
		case FilterHost:
			s, ok := v.(string)
			if !ok {
				return nil, NewInvalidArgumentError(fmt.Sprintf("filter %q wants a string, got %T", k, v))
			}
			host, hasHost = s, true
		case FilterPort:
			n, ok := v.(int)
			if !ok {
				return nil, NewInvalidArgumentError(fmt.Sprintf("filter %q wants an int, got %T", k, v))
			}
			port, hasPort = n, true
		case FilterHeaders:
			m, ok := v.(map[string]string)
			if !ok {
				return nil, NewInvalidArgumentError(fmt.Sprintf("filter %q wants a map[string]string, got %T", k, v))
			}
			headers = m
		default:
			return nil, NewUnknownFilterError(k)
		}
	}

	out := make([]*Device, 0, len(devices))
	for _, d := range devices {
		if hasHost && d.Host != host {
			continue
		}
		if hasPort && d.Port != port {
			continue
		}
		if !matchHeaders(d, headers) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func matchHeaders(d *Device, headers map[string]string) bool {
	for name, want := range headers {
		got, ok := d.Response.Lookup(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// ParseFilter adds one "key=value" expression to f. Header predicates are
// written "header.<Name>=<value>"; port values must be integers.
func (f Filters) ParseFilter(expr string) error {
	key, value, ok := strings.Cut(expr, "=")
	if !ok {
		return NewInvalidArgumentError(fmt.Sprintf("filter %q is not of the form key=value", expr))
	}
	key = strings.TrimSpace(key)

	if name, isHeader := strings.CutPrefix(key, "header."); isHeader {
		if name == "" {
			return NewInvalidArgumentError(fmt.Sprintf("filter %q names no header", expr))
		}
		headers, _ := f[FilterHeaders].(map[string]string)
		if headers == nil {
			headers = map[string]string{}
			f[FilterHeaders] = headers
		}
		headers[name] = value
		return nil
	}

	switch key {
	case FilterHost:
		f[FilterHost] = value
	case FilterPort:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return NewInvalidArgumentError(fmt.Sprintf("filter %q: port must be an integer", expr))
		}
		f[FilterPort] = n
	default:
		return NewUnknownFilterError(key)
	}
	return nil
}

// ParseFilters builds Filters from "key=value" expressions
func ParseFilters(exprs []string) (Filters, error) {
	f := Filters{}
	for _, expr := range exprs {
		if err := f.ParseFilter(expr); err != nil {
			return nil, err
		}
	}
	return f, nil
}
