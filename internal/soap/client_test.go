package soap

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wanIP1 = "urn:schemas-upnp-org:service:WANIPConnection:1"

const externalIPResponse = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
<s:Body>
<u:GetExternalIPAddressResponse xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1">
<NewExternalIPAddress>203.0.113.7</NewExternalIPAddress>
</u:GetExternalIPAddressResponse>
</s:Body>
</s:Envelope>`

const conflictFault = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
<s:Body>
<s:Fault>
<faultcode>s:Client</faultcode>
<faultstring>UPnPError</faultstring>
<detail>
<UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
<errorCode>718</errorCode>
<errorDescription>ConflictInMappingEntry</errorDescription>
</UPnPError>
</detail>
</s:Fault>
</s:Body>
</s:Envelope>`

type capturedRequest struct {
	soapAction string
	body       string
}

func newControlServer(t *testing.T, status int, reply string) (*httptest.Server, chan capturedRequest) {
	t.Helper()

	captured := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured <- capturedRequest{soapAction: r.Header.Get("SOAPAction"), body: string(body)}
		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestClient_Send_NoArguments(t *testing.T) {
	srv, captured := newControlServer(t, http.StatusOK, externalIPResponse)

	resp, err := NewClient().Send(context.Background(), Request{
		ControlURL:  srv.URL + "/ctl/IPConn",
		ServiceType: wanIP1,
		Action:      "GetExternalIPAddress",
	})
	require.NoError(t, err)
	assert.Equal(t, Response{"NewExternalIPAddress": "203.0.113.7"}, resp)

	req := <-captured
	assert.Contains(t, req.soapAction, wanIP1+"#GetExternalIPAddress")
	assert.Contains(t, req.body, "GetExternalIPAddress")
}

func TestClient_Send_ArgumentsInOrder(t *testing.T) {
	srv, captured := newControlServer(t, http.StatusOK, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>
<u:AddPortMappingResponse xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1"></u:AddPortMappingResponse>
</s:Body></s:Envelope>`)

	resp, err := NewClient().Send(context.Background(), Request{
		ControlURL:  srv.URL + "/ctl/IPConn",
		ServiceType: wanIP1,
		Action:      "AddPortMapping",
		Args: []Arg{
			{Name: "NewRemoteHost", Value: ""},
			{Name: "NewExternalPort", Value: "8080"},
			{Name: "NewProtocol", Value: "TCP"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, resp)

	body := (<-captured).body
	remote := strings.Index(body, "NewRemoteHost")
	port := strings.Index(body, "<NewExternalPort>8080</NewExternalPort>")
	proto := strings.Index(body, "<NewProtocol>TCP</NewProtocol>")
	require.True(t, remote >= 0 && port >= 0 && proto >= 0, "body: %s", body)
	assert.Less(t, remote, port)
	assert.Less(t, port, proto)
}

func TestClient_Send_Fault(t *testing.T) {
	srv, _ := newControlServer(t, http.StatusInternalServerError, conflictFault)

	_, err := NewClient().Send(context.Background(), Request{
		ControlURL:  srv.URL + "/ctl/IPConn",
		ServiceType: wanIP1,
		Action:      "AddPortMapping",
		Args:        []Arg{{Name: "NewExternalPort", Value: "80"}},
	})

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 718, fault.Code)
	assert.Equal(t, "ConflictInMappingEntry", fault.Description)
	assert.Equal(t, "SOAP fault 718: ConflictInMappingEntry", fault.Error())
}

func TestClient_Send_InvalidControlURL(t *testing.T) {
	_, err := NewClient().Send(context.Background(), Request{ControlURL: "/relative/only", Action: "X"})
	assert.Error(t, err)
}

func TestRequestStruct_RejectsBadNames(t *testing.T) {
	_, err := requestStruct([]Arg{{Name: "lowercase"}})
	assert.Error(t, err)

	_, err = requestStruct([]Arg{{Name: "New-Port"}})
	assert.Error(t, err)

	_, err = requestStruct([]Arg{{Name: "NewPort"}, {Name: "NewPort"}})
	assert.Error(t, err)
}

func TestResponse_UnmarshalXML(t *testing.T) {
	var resp Response
	err := xml.Unmarshal([]byte(`<u:GetStatusInfoResponse xmlns:u="x">
		<NewConnectionStatus>Connected</NewConnectionStatus>
		<NewLastConnectionError>ERROR_NONE</NewLastConnectionError>
		<NewUptime>3600</NewUptime>
	</u:GetStatusInfoResponse>`), &resp)
	require.NoError(t, err)

	assert.Equal(t, Response{
		"NewConnectionStatus":    "Connected",
		"NewLastConnectionError": "ERROR_NONE",
		"NewUptime":              "3600",
	}, resp)
}
