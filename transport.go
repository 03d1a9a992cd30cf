package slidingsync

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// Transport performs the single HTTP round trip a tick needs. The engine
// builds the *http.Request (method, URL, body, headers) and hands it to the
// Transport rather than constructing a client internally, so tests can
// inject an httptest.Server-backed client or a table-driven stub without
// touching the network.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPTransport is the default Transport: a thin wrapper over *http.Client.
// It does not retry or back off; the caller's sync loop owns that policy.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns an HTTPTransport using client, or a fresh
// *http.Client if client is nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := t.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "performing sliding sync request")
	}
	return resp, nil
}
