package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the configuration file format version
const CurrentVersion = 1

// Default discovery settings
const (
	DefaultTimeoutSeconds = 2
	DefaultSearchTarget   = "ssdp:all"
	DefaultTTL            = 2
	DefaultFriendlyName   = "upnpctl"
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version      int                `yaml:"version"`
	ControlPoint *ControlPoint      `yaml:"control_point,omitempty"`
	Discovery    *Discovery         `yaml:"discovery,omitempty"`
	Devices      map[string]*Device `yaml:"devices,omitempty"` // Keyed by USN
}

// ControlPoint is the identity this tool announces in M-SEARCH requests.
type ControlPoint struct {
	UUID         string `yaml:"uuid"`                 // CPUUID.UPNP.ORG, generated once
	FriendlyName string `yaml:"friendly_name"`        // CPFN.UPNP.ORG
	UserAgent    string `yaml:"user_agent,omitempty"` // USER-AGENT override
}

// Discovery holds the default search parameters.
type Discovery struct {
	TimeoutSeconds int               `yaml:"timeout_seconds"`     // Collection window (MX)
	SearchTarget   string            `yaml:"search_target"`       // ST header
	TTL            int               `yaml:"ttl"`                 // Multicast hop limit
	Interface      string            `yaml:"interface,omitempty"` // Outgoing interface name
	Headers        map[string]string `yaml:"headers,omitempty"`   // Extra M-SEARCH headers
}

// Device is what was last seen of a device in a discovery response.
type Device struct {
	Location string    `yaml:"location"`         // Description URL
	ST       string    `yaml:"st,omitempty"`     // Search target answered
	Server   string    `yaml:"server,omitempty"` // SERVER header
	Host     string    `yaml:"host"`             // Source address of the response
	Port     int       `yaml:"port"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// NewRegistry creates a new Registry with default values and a fresh
// control point UUID.
func NewRegistry() *Registry {
	r := &Registry{Version: CurrentVersion}
	r.ensureDefaults()
	return r
}

// ensureDefaults fills in sections missing from an older or hand-written file.
func (r *Registry) ensureDefaults() {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if r.ControlPoint == nil {
		r.ControlPoint = &ControlPoint{FriendlyName: DefaultFriendlyName}
	}
	if r.ControlPoint.UUID == "" {
		r.ControlPoint.UUID = uuid.NewString()
	}
	if r.Discovery == nil {
		r.Discovery = &Discovery{}
	}
	if r.Discovery.TimeoutSeconds <= 0 {
		r.Discovery.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if r.Discovery.SearchTarget == "" {
		r.Discovery.SearchTarget = DefaultSearchTarget
	}
	if r.Discovery.TTL <= 0 {
		r.Discovery.TTL = DefaultTTL
	}
}

// ControlPointID returns the parsed control point UUID.
func (r *Registry) ControlPointID() (uuid.UUID, error) {
	if r.ControlPoint == nil || r.ControlPoint.UUID == "" {
		return uuid.Nil, fmt.Errorf("control point UUID not set")
	}
	id, err := uuid.Parse(r.ControlPoint.UUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid control point UUID %q: %w", r.ControlPoint.UUID, err)
	}
	return id, nil
}

// DiscoveryTimeout returns the configured collection window.
func (r *Registry) DiscoveryTimeout() time.Duration {
	if r.Discovery == nil || r.Discovery.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(r.Discovery.TimeoutSeconds) * time.Second
}

// GetDevice retrieves a device by USN.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(usn string) *Device {
	return r.Devices[usn]
}

// RememberDevice records a discovery response under its USN and stamps it
// with the current time.
func (r *Registry) RememberDevice(usn string, seen Device) {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	seen.LastSeen = time.Now()
	r.Devices[usn] = &seen
}

// ForgetDevice removes a device. It reports whether the device was known.
func (r *Registry) ForgetDevice(usn string) bool {
	if _, ok := r.Devices[usn]; !ok {
		return false
	}
	delete(r.Devices, usn)
	return true
}

// PruneDevices removes devices not seen within maxAge and returns how many
// were removed.
func (r *Registry) PruneDevices(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for usn, d := range r.Devices {
		if d.LastSeen.Before(cutoff) {
			delete(r.Devices, usn)
			removed++
		}
	}
	return removed
}

// FindDevice looks a device up by USN, then by host. The USN match may be
// the full USN or its leading "uuid:..." part.
func (r *Registry) FindDevice(key string) (string, *Device) {
	if d, ok := r.Devices[key]; ok {
		return key, d
	}
	for _, usn := range r.USNs() {
		d := r.Devices[usn]
		if uuidPart(usn) == key || d.Host == key {
			return usn, d
		}
	}
	return "", nil
}

// USNs returns the known device USNs in sorted order.
func (r *Registry) USNs() []string {
	out := make([]string, 0, len(r.Devices))
	for usn := range r.Devices {
		out = append(out, usn)
	}
	sort.Strings(out)
	return out
}

func uuidPart(usn string) string {
	id, _, _ := strings.Cut(usn, "::")
	return id
}
