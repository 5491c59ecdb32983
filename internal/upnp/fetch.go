package upnp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/upnpctl/internal/logging"
)

// maxDocumentSize caps description and SCPD documents (1 MiB)
const maxDocumentSize = 1 << 20

// ErrDocumentTooLarge is wrapped by the transport error returned for a
// document larger than maxDocumentSize
var ErrDocumentTooLarge = errors.New("document too large")

// Fetcher retrieves description documents over HTTP
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher. It performs a single GET per call and
// never retries; timeouts come from the context or HTTPClient.Timeout.
type HTTPFetcher struct {
	// HTTPClient is the underlying HTTP client (nil = http.DefaultClient)
	HTTPClient *http.Client

	// UserAgent is sent on every request when set
	UserAgent string

	// Logger receives one entry per fetch (nil = global logger)
	Logger *zap.Logger
}

// NewHTTPFetcher creates a fetcher using the given client
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{HTTPClient: client}
}

// Fetch downloads the document at url
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewTransportError("failed to create request", url, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewTransportError(fmt.Sprintf("failed to fetch %s", url), url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, NewTransportError("failed to read response body", url, err)
	}
	if len(body) > maxDocumentSize {
		return nil, NewTransportError(
			fmt.Sprintf("document at %s is larger than %d bytes", url, maxDocumentSize), url, ErrDocumentTooLarge)
	}

	log := f.Logger
	if log == nil {
		log = logging.Named("fetch")
	}
	logging.LogFetch(log, url, resp.StatusCode, len(body))

	return body, nil
}
