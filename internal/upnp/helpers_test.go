package upnp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/soap"
	"github.com/muurk/upnpctl/internal/ssdp"
)

const (
	fixtureLocation = "http://192.168.1.1:5431/dyndev/uuid:c8d12a3b-22a7-a722-3b2a-d1c8d13ba700"
	wanIPConn1      = "urn:schemas-upnp-org:service:WANIPConnection:1"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// ssdpResponse builds an SSDP response from "Name: value" header lines
func ssdpResponse(host string, port int, headers ...string) ssdp.Response {
	raw := "HTTP/1.1 200 OK\r\n" + strings.Join(headers, "\r\n") + "\r\n\r\n"
	return ssdp.NewResponse(host, port, raw)
}

// fakeFetcher serves documents by URL and counts requests
type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string][]byte
	errs  map[string][]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		docs:  map[string][]byte{},
		errs:  map[string][]error{},
		calls: map[string]int{},
	}
}

// failNext makes the next fetch of url fail with err
func (f *fakeFetcher) failNext(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = append(f.errs[url], err)
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if errs := f.errs[url]; len(errs) > 0 {
		f.errs[url] = errs[1:]
		return nil, errs[0]
	}
	doc, ok := f.docs[url]
	if !ok {
		return nil, NewHTTPStatusError(url, 404)
	}
	return doc, nil
}

// fakeSender records requests and replies from a script
type fakeSender struct {
	mu       sync.Mutex
	requests []soap.Request
	reply    func(req soap.Request) (soap.Response, error)
}

func (s *fakeSender) Send(_ context.Context, req soap.Request) (soap.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	reply := s.reply
	s.mu.Unlock()
	if reply == nil {
		return soap.Response{}, nil
	}
	return reply(req)
}

func (s *fakeSender) sent() []soap.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]soap.Request(nil), s.requests...)
}

// argMap flattens request arguments for comparison
func argMap(req soap.Request) map[string]string {
	out := make(map[string]string, len(req.Args))
	for _, a := range req.Args {
		out[a.Name] = a.Value
	}
	return out
}

func argNames(req soap.Request) []string {
	out := make([]string, len(req.Args))
	for i, a := range req.Args {
		out[i] = a.Name
	}
	return out
}

// newTestService builds a service with a seeded SCPD and a fake sender
func newTestService(t *testing.T, serviceType string, scpd []byte, sender *fakeSender) *Service {
	t.Helper()
	svc, err := NewService(serviceType, "urn:upnp-org:serviceId:test1", "/scpd.xml",
		"/ctl", "/evt", "http://192.168.1.1:5431",
		WithSender(sender), WithFetcher(newFakeFetcher()), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.True(t, svc.SetDescription(scpd))
	return svc
}

// scpdWith renders a minimal SCPD declaring the given actions. Each action
// is "Name" or "Name(InArg,InArg)".
func scpdWith(actions ...string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><scpd xmlns="urn:schemas-upnp-org:service-1-0"><actionList>`)
	for _, a := range actions {
		name, argList, hasArgs := strings.Cut(a, "(")
		fmt.Fprintf(&b, "<action><name>%s</name>", name)
		if hasArgs {
			b.WriteString("<argumentList>")
			for _, arg := range strings.Split(strings.TrimSuffix(argList, ")"), ",") {
				fmt.Fprintf(&b, "<argument><name>%s</name><direction>in</direction><relatedStateVariable>A_ARG_%s</relatedStateVariable></argument>", arg, arg)
			}
			b.WriteString("</argumentList>")
		}
		b.WriteString("</action>")
	}
	b.WriteString(`</actionList></scpd>`)
	return []byte(b.String())
}
