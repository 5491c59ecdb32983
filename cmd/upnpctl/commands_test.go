package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/upnpctl/internal/config"
	"github.com/muurk/upnpctl/internal/soap"
	"github.com/muurk/upnpctl/internal/ssdp"
	"github.com/muurk/upnpctl/internal/upnp"
)

const (
	fixtureLocation = "http://192.168.1.1:5431/dyndev/uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba700"
	fixtureSCPD     = "http://192.168.1.1:5431/scpd.xml"
)

// mapFetcher serves fixture documents by URL
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if doc, ok := m[url]; ok {
		return doc, nil
	}
	return nil, errors.New("not found: " + url)
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "upnp", "testdata", name))
	require.NoError(t, err)
	return data
}

func TestParseExecArgs(t *testing.T) {
	args, err := parseExecArgs([]string{"8080", "TCP"}, []string{"description=web server", "leaseDuration=0"})
	require.NoError(t, err)

	assert.Equal(t, []any{"8080", "TCP"}, args.Positional)
	assert.Equal(t, "web server", args.Named["description"])
	assert.Equal(t, "0", args.Named["leaseDuration"])
}

func TestParseExecArgs_Errors(t *testing.T) {
	tests := []struct {
		name  string
		named []string
	}{
		{"missing equals", []string{"externalPort"}},
		{"empty name", []string{"=8080"}},
		{"duplicate", []string{"protocol=TCP", "protocol=UDP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExecArgs(nil, tt.named)
			require.Error(t, err)
			assert.ErrorIs(t, err, upnp.ErrInvalidArgument)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"MX=3", " X-Test = a=b "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"MX": "3", "X-Test": "a=b"}, headers)

	_, err = parseHeaders([]string{"nope"})
	assert.ErrorIs(t, err, upnp.ErrInvalidArgument)
}

func TestHeaderValue(t *testing.T) {
	headers := map[string]string{"st": "upnp:rootdevice"}
	assert.Equal(t, "upnp:rootdevice", headerValue(headers, "ST", "ssdp:all"))
	assert.Equal(t, "ssdp:all", headerValue(nil, "ST", "ssdp:all"))
}

func TestParsePort(t *testing.T) {
	p, err := parsePort(" 8080 ")
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), p)

	for _, bad := range []string{"0", "65536", "http", ""} {
		_, err := parsePort(bad)
		assert.ErrorIs(t, err, upnp.ErrInvalidArgument, "port %q", bad)
	}
}

func TestNormalizeProtocol(t *testing.T) {
	p, err := normalizeProtocol("udp")
	require.NoError(t, err)
	assert.Equal(t, "UDP", p)

	_, err = normalizeProtocol("sctp")
	assert.ErrorIs(t, err, upnp.ErrInvalidArgument)
}

func TestPortMappingFromArgs(t *testing.T) {
	defer func(p, c, d string, l time.Duration) {
		mapProtocol, mapClient, mapDescription, mapLease = p, c, d, l
	}(mapProtocol, mapClient, mapDescription, mapLease)

	mapProtocol, mapClient, mapDescription, mapLease = "tcp", "192.168.1.20", "ssh", time.Hour

	m, err := portMappingFromArgs([]string{"2222", "22"})
	require.NoError(t, err)
	assert.Equal(t, upnp.PortMapping{
		ExternalPort:   2222,
		Protocol:       "TCP",
		InternalPort:   22,
		InternalClient: "192.168.1.20",
		Enabled:        true,
		Description:    "ssh",
		LeaseDuration:  3600,
	}, m)

	m, err = portMappingFromArgs([]string{"8080"})
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), m.InternalPort, "internal port defaults to the external port")

	mapLease = -time.Second
	_, err = portMappingFromArgs([]string{"8080"})
	assert.ErrorIs(t, err, upnp.ErrInvalidArgument)
}

func TestHintLines(t *testing.T) {
	lines := hintLines(&upnp.Error{Kind: upnp.KindNoIGDFound})
	require.NotEmpty(t, lines)
	assert.Contains(t, lines, "Enable UPnP on the router")
	for _, l := range lines {
		assert.NotContains(t, l, "•")
	}

	assert.Nil(t, hintLines(errors.New("plain")))
}

func TestServicesTable(t *testing.T) {
	d, err := upnp.DeviceAt(fixtureLocation, upnp.WithFetcher(mapFetcher{
		fixtureLocation: fixture(t, "TestDevice.xml"),
	}))
	require.NoError(t, err)

	services, err := d.Services(context.Background())
	require.NoError(t, err)

	table := servicesTable(services)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{
		"WANCommonInterfaceConfig", "1", "WANCommonInterfaceConfig.1",
		"http://192.168.1.1:5431/uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba70001/WANCommonInterfaceConfig:1",
		"yes",
	}, table.Rows[0])
	assert.Equal(t, "WANPPPConnection", table.Rows[1][0])
}

func TestActionsTable(t *testing.T) {
	svc, err := upnp.NewService(
		"urn:schemas-upnp-org:service:WANIPConnection:1",
		"urn:upnp-org:serviceId:WANIPConn1",
		"/scpd.xml", "/ctl", "", "http://192.168.1.1:5431",
		upnp.WithFetcher(mapFetcher{fixtureSCPD: fixture(t, "WANIPConnection1.xml")}),
	)
	require.NoError(t, err)

	actions, err := svc.Actions(context.Background())
	require.NoError(t, err)

	table := actionsTable(svc, actions)
	supported := make(map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		supported[row[0]] = row[3]
	}
	assert.Equal(t, "yes", supported["GetExternalIPAddress"])
	assert.Equal(t, "no", supported["X_GetVendorStats"])

	for _, row := range table.Rows {
		if row[0] == "DeletePortMapping" {
			assert.Equal(t, "NewRemoteHost, NewExternalPort, NewProtocol", row[1])
		}
	}
}

func TestResponseDetails(t *testing.T) {
	action := &upnp.Action{
		Name: "GetStatusInfo",
		Arguments: []upnp.Argument{
			{Name: "NewConnectionStatus", Direction: upnp.DirectionOut},
			{Name: "NewLastConnectionError", Direction: upnp.DirectionOut},
			{Name: "NewUptime", Direction: upnp.DirectionOut},
		},
	}
	details := responseDetails(action, soap.Response{
		"NewUptime":           "3600",
		"NewConnectionStatus": "Connected",
		"X_Vendor":            "1",
	})

	keys := make([]string, len(details))
	for i, d := range details {
		keys[i] = d.Key
	}
	assert.Equal(t, []string{"NewConnectionStatus", "NewUptime", "X_Vendor"}, keys)
}

func TestTemplatesTable(t *testing.T) {
	table := templatesTable(upnp.Registered(), false)
	require.NotEmpty(t, table.Rows)

	found := false
	for _, row := range table.Rows {
		if row[0] == "WANIPConnection" && row[1] == "2" {
			found = true
		}
	}
	assert.True(t, found, "WANIPConnection v2 should be registered")
}

func TestPortMappingsTable(t *testing.T) {
	table := portMappingsTable([]upnp.PortMapping{
		{ExternalPort: 8080, Protocol: "TCP", InternalPort: 80, InternalClient: "192.168.1.20", Enabled: true},
		{RemoteHost: "198.51.100.1", ExternalPort: 53, Protocol: "UDP", InternalPort: 53, LeaseDuration: 60},
	})
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "permanent", table.Rows[0][5])
	assert.Equal(t, "198.51.100.1:53", table.Rows[1][1])
	assert.Equal(t, "60s", table.Rows[1][5])
}

func TestSessionRemember(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer func(v bool) { noSave = v }(noSave)
	noSave = false

	cfg := config.NewRegistry()
	s, err := newSession(cfg)
	require.NoError(t, err)

	resp := ssdp.NewResponse("192.168.1.1", 1900, "HTTP/1.1 200 OK\r\n"+
		"LOCATION: "+fixtureLocation+"\r\n"+
		"ST: "+upnp.InternetGatewayDevice+"\r\n"+
		"USN: uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba700::"+upnp.InternetGatewayDevice+"\r\n\r\n")
	s.remember([]*upnp.Device{upnp.NewDevice(resp)})

	usn, d := cfg.FindDevice("192.168.1.1")
	require.NotNil(t, d)
	assert.Equal(t, "uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba700::"+upnp.InternetGatewayDevice, usn)
	assert.Equal(t, fixtureLocation, d.Location)
	assert.Equal(t, 1900, d.Port)
}

func TestSessionDiscovererUsesIdentity(t *testing.T) {
	cfg := config.NewRegistry()
	cfg.ControlPoint.FriendlyName = "test-cp"
	cfg.Discovery.TTL = 4

	d, err := newDiscoverer(cfg, "test/1.0 UPnP/2.0 upnpctl/dev")
	require.NoError(t, err)

	id, err := cfg.ControlPointID()
	require.NoError(t, err)
	assert.Equal(t, id, d.ControlPointID)
	assert.Equal(t, "test-cp", d.FriendlyName)
	assert.Equal(t, 4, d.TTL)

	req := string(d.BuildRequest(ssdp.SearchRequest{Wait: time.Second}))
	assert.Contains(t, req, "CPUUID.UPNP.ORG: "+id.String())
	assert.Contains(t, req, "USER-AGENT: test/1.0 UPnP/2.0 upnpctl/dev")
}

func TestSessionDiscovererBadInterface(t *testing.T) {
	defer func(v string) { ifaceName = v }(ifaceName)
	ifaceName = "does-not-exist0"

	_, err := newDiscoverer(config.NewRegistry(), "")
	assert.ErrorIs(t, err, upnp.ErrInvalidArgument)
}
