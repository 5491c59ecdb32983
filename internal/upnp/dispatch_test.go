package upnp

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/upnpctl/internal/soap"
)

func TestExecute_GetExternalIPAddress(t *testing.T) {
	want := soap.Response{"NewExternalIPAddress": "203.0.113.7", "X_Vendor": "kept"}
	sender := &fakeSender{reply: func(soap.Request) (soap.Response, error) { return want, nil }}
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

	got, err := svc.Execute(context.Background(), ByName("GetExternalIPAddress"), Arguments{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "GetExternalIPAddress", sent[0].Action)
	assert.Equal(t, wanIPConn1, sent[0].ServiceType)
	assert.Equal(t, "http://192.168.1.1:5431/ctl", sent[0].ControlURL)
	assert.Empty(t, sent[0].Args)
}

func TestExecute_ByHandle(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

	action, err := svc.Action(context.Background(), "GetStatusInfo")
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), ByHandle(action), Arguments{})
	require.NoError(t, err)
	require.Len(t, sender.sent(), 1)
	assert.Equal(t, "GetStatusInfo", sender.sent()[0].Action)
}

func TestExecute_InvalidActionRef(t *testing.T) {
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), &fakeSender{})

	for name, ref := range map[string]ActionRef{
		"zero value":  {},
		"empty name":  ByName(""),
		"nil handle":  ByHandle(nil),
		"no name set": ByHandle(&Action{}),
	} {
		_, err := svc.Execute(context.Background(), ref, Arguments{})
		assert.True(t, errors.Is(err, ErrInvalidArgument), name)
	}
}

func TestExecute_ActionNotInSCPD(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, wanIPConn1, scpdWith("GetExternalIPAddress"), sender)

	_, err := svc.Execute(context.Background(), ByName("AddPortMapping"), Arguments{})
	assert.Equal(t, KindActionNotFound, KindOf(err))
	assert.Empty(t, sender.sent())
}

func TestExecute_VersionWithoutTemplate(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, "urn:schemas-upnp-org:service:WANCommonInterfaceConfig:2",
		scpdWith("GetCommonLinkProperties"), sender)

	_, err := svc.Execute(context.Background(), ByName("GetCommonLinkProperties"), Arguments{})

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindUnsupportedServiceVersion, e.Kind)
	assert.Contains(t, e.Message, "[1]")
	assert.Empty(t, sender.sent(), "must not fall back to version 1")
}

func TestExecute_UnknownServiceType(t *testing.T) {
	svc := newTestService(t, "urn:schemas-upnp-org:service:ContentDirectory:1", scpdWith("Browse"), &fakeSender{})

	_, err := svc.Execute(context.Background(), ByName("Browse"), Arguments{})
	assert.Equal(t, KindUnsupportedService, KindOf(err))
	assert.True(t, IsUnsupported(err))
}

func TestExecute_ForeignDomainSameTypeName(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, "urn:dslforum-org:service:WANIPConnection:1",
		readFixture(t, "WANIPConnection1.xml"), sender)
	require.Equal(t, "WANIPConnection", svc.TypeName())

	_, err := svc.Execute(context.Background(), ByName("GetExternalIPAddress"), Arguments{})

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, err, ErrUnsupportedService)
	assert.Equal(t, "urn:dslforum-org:service:WANIPConnection:1", e.ServiceType)
	assert.Empty(t, sender.sent())
}

func TestExecute_ActionNotInTemplate(t *testing.T) {
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), &fakeSender{})

	_, err := svc.Execute(context.Background(), ByName("X_GetVendorStats"), Arguments{})
	assert.Equal(t, KindUnsupportedAction, KindOf(err))

	// AddAnyPortMapping exists only from version 2 on
	v1 := newTestService(t, wanIPConn1, scpdWith("AddAnyPortMapping(NewExternalPort)"), &fakeSender{})
	_, err = v1.Execute(context.Background(), ByName("AddAnyPortMapping"), Args(80))
	assert.Equal(t, KindUnsupportedAction, KindOf(err))
}

func TestExecute_AddPortMapping_NamedWithDefaults(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

	_, err := svc.Execute(context.Background(), ByName("AddPortMapping"), Named(
		"externalPort", 8080,
		"protocol", "TCP",
		"NewInternalPort", uint16(80),
		"internalClient", "192.168.1.10",
	))
	require.NoError(t, err)

	req := sender.sent()[0]
	assert.Equal(t, []string{
		"NewRemoteHost", "NewExternalPort", "NewProtocol", "NewInternalPort",
		"NewInternalClient", "NewEnabled", "NewPortMappingDescription", "NewLeaseDuration",
	}, argNames(req))
	assert.Equal(t, map[string]string{
		"NewRemoteHost":             "",
		"NewExternalPort":           "8080",
		"NewProtocol":               "TCP",
		"NewInternalPort":           "80",
		"NewInternalClient":         "192.168.1.10",
		"NewEnabled":                "1",
		"NewPortMappingDescription": "",
		"NewLeaseDuration":          "0",
	}, argMap(req))
}

func TestExecute_PositionalFollowsSCPDOrder(t *testing.T) {
	sender := &fakeSender{}
	// This device declares the port before the remote host
	svc := newTestService(t, wanIPConn1,
		scpdWith("DeletePortMapping(NewExternalPort,NewRemoteHost,NewProtocol)"), sender)

	_, err := svc.Execute(context.Background(), ByName("DeletePortMapping"), Args(8080, "10.0.0.1", "UDP"))
	require.NoError(t, err)

	req := sender.sent()[0]
	assert.Equal(t, []soap.Arg{
		{Name: "NewExternalPort", Value: "8080"},
		{Name: "NewRemoteHost", Value: "10.0.0.1"},
		{Name: "NewProtocol", Value: "UDP"},
	}, req.Args)
}

func TestExecute_PositionalTemplateOrderWithoutArgumentList(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, wanIPConn1, scpdWith("DeletePortMapping"), sender)

	_, err := svc.Execute(context.Background(), ByName("DeletePortMapping"), Args("", "443", "TCP"))
	require.NoError(t, err)
	assert.Equal(t, []string{"NewRemoteHost", "NewExternalPort", "NewProtocol"}, argNames(sender.sent()[0]))
}

func TestExecute_ArgumentMismatch(t *testing.T) {
	tests := []struct {
		name string
		args Arguments
		msg  string
	}{
		{"too many positional", Args("", 80, "TCP", "extra"), "at most 3"},
		{"unknown name", Named("externalPort", 80, "protocol", "TCP", "colour", "red"), `unknown argument "colour"`},
		{"bound twice", Arguments{Positional: []any{"", 80}, Named: map[string]any{"NewExternalPort": 81, "protocol": "TCP"}}, "more than once"},
		{"missing required", Named("externalPort", 80), `missing required argument "protocol"`},
		{"not a number", Named("externalPort", "http", "protocol", "TCP"), `argument "externalPort"`},
		{"out of range", Named("externalPort", 70000, "protocol", "TCP"), "out of range"},
		{"wrong type", Named("externalPort", 80, "protocol", 6), "cannot use int as string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

			_, err := svc.Execute(context.Background(), ByName("DeletePortMapping"), tt.args)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, KindArgumentMismatch, e.Kind)
			assert.Contains(t, e.Error(), tt.msg)
			assert.Empty(t, sender.sent())
		})
	}
}

func TestExecute_StringValuesAreParsed(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

	_, err := svc.Execute(context.Background(), ByName("AddPortMapping"), Named(
		"externalPort", "8080",
		"protocol", "TCP",
		"internalPort", " 80 ",
		"internalClient", "192.168.1.10",
		"enabled", "false",
		"leaseDuration", "3600",
	))
	require.NoError(t, err)

	args := argMap(sender.sent()[0])
	assert.Equal(t, "8080", args["NewExternalPort"])
	assert.Equal(t, "80", args["NewInternalPort"])
	assert.Equal(t, "0", args["NewEnabled"])
	assert.Equal(t, "3600", args["NewLeaseDuration"])
}

func TestExecute_SOAPFault(t *testing.T) {
	fault := &soap.FaultError{Code: 718, Description: "ConflictInMappingEntry", FaultCode: "s:Client", FaultString: "UPnPError"}
	sender := &fakeSender{reply: func(soap.Request) (soap.Response, error) { return nil, fault }}
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

	_, err := svc.Execute(context.Background(), ByName("AddPortMapping"), Named(
		"externalPort", 80, "protocol", "TCP", "internalPort", 80, "internalClient", "192.168.1.10"))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindSOAP, e.Kind)
	assert.Equal(t, 718, e.Code)
	assert.Equal(t, "ConflictInMappingEntry", e.Description)
	assert.ErrorIs(t, err, fault)
	assert.Contains(t, Hint(err), "already mapped")
}

func TestExecute_TransportFailure(t *testing.T) {
	sender := &fakeSender{reply: func(soap.Request) (soap.Response, error) {
		return nil, errors.New("connection reset by peer")
	}}
	svc := newTestService(t, wanIPConn1, readFixture(t, "WANIPConnection1.xml"), sender)

	_, err := svc.Execute(context.Background(), ByName("GetExternalIPAddress"), Arguments{})
	assert.True(t, IsTransportError(err))
	assert.Len(t, sender.sent(), 1, "no retries")
}

func TestRegistered(t *testing.T) {
	counts := map[string]int{}
	for _, info := range Registered() {
		assert.Equal(t, forumServices+info.TypeName, info.ServiceType)
		counts[info.TypeName+":"+strconv.Itoa(info.Version)] = len(info.Actions)
	}

	assert.Equal(t, map[string]int{
		"Layer3Forwarding:1":         2,
		"WANCommonInterfaceConfig:1": 10,
		"WANIPConnection:1":          18,
		"WANIPConnection:2":          21,
		"WANPPPConnection:1":         25,
	}, counts)
}

func TestLookupTemplate(t *testing.T) {
	_, err := LookupTemplate(wanIPConn1)
	assert.NoError(t, err)

	_, err = LookupTemplate("urn:schemas-upnp-org:service:WANIPConnection:3")
	assert.Equal(t, KindUnsupportedServiceVersion, KindOf(err))

	_, err = LookupTemplate("urn:schemas-upnp-org:service:Nope:1")
	assert.Equal(t, KindUnsupportedService, KindOf(err))

	_, err = LookupTemplate("urn:dslforum-org:service:WANIPConnection:1")
	assert.Equal(t, KindUnsupportedService, KindOf(err))

	_, err = LookupTemplate("WANIPConnection")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestArguments_With(t *testing.T) {
	base := Named("protocol", "TCP")
	next := base.With("externalPort", 80)

	assert.Len(t, base.Named, 1)
	assert.Equal(t, map[string]any{"protocol": "TCP", "externalPort": 80}, next.Named)
}

func TestNamed_MisuseIsAProgrammingError(t *testing.T) {
	assert.Equal(t, map[string]any{"protocol": "TCP"}, Named("protocol", "TCP").Named)
	assert.Empty(t, Named().Named)

	assert.Panics(t, func() { Named("externalPort", 80, "protocol") }, "trailing name")
	assert.Panics(t, func() { Named(80, "externalPort") }, "non-string name")
}
