// Package binance implements the order adapters for Binance spot, USDⓈ-M
// futures and portfolio margin (PAPI) accounts.
package binance

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/signing"
)

const (
	// PAPIBaseURL is the production portfolio margin API URL
	PAPIBaseURL = "https://papi.binance.com"
	// FAPIBaseURL is the production USDⓈ-M futures API URL
	FAPIBaseURL = "https://fapi.binance.com"
	// SpotBaseURL is the production spot API URL
	SpotBaseURL = "https://api.binance.com"
)

// Endpoints holds the base URLs for each Binance API family
type Endpoints struct {
	PAPIURL string
	FAPIURL string
	SpotURL string
}

// DefaultEndpoints returns the production base URLs
func DefaultEndpoints() Endpoints {
	return Endpoints{PAPIURL: PAPIBaseURL, FAPIURL: FAPIBaseURL, SpotURL: SpotBaseURL}
}

type route struct {
	base       func(Endpoints) string
	openOrders string
	order      string
}

var routes = map[string]route{
	exchange.SourcePAPIUM: {
		base:       func(e Endpoints) string { return e.PAPIURL },
		openOrders: "/papi/v1/um/openOrders",
		order:      "/papi/v1/um/order",
	},
	exchange.SourcePAPISpot: {
		base:       func(e Endpoints) string { return e.PAPIURL },
		openOrders: "/papi/v1/margin/openOrders",
		order:      "/papi/v1/margin/order",
	},
	exchange.SourceFAPIUM: {
		base:       func(e Endpoints) string { return e.FAPIURL },
		openOrders: "/fapi/v1/openOrders",
		order:      "/fapi/v1/order",
	},
	exchange.SourceSpot: {
		base:       func(e Endpoints) string { return e.SpotURL },
		openOrders: "/api/v3/openOrders",
		order:      "/api/v3/order",
	},
}

// Sources lists the Binance order sources in canonical order
var Sources = []string{
	exchange.SourcePAPIUM,
	exchange.SourcePAPISpot,
	exchange.SourceFAPIUM,
	exchange.SourceSpot,
}

// IsSource reports whether source is a Binance order source
func IsSource(source string) bool {
	_, ok := routes[source]
	return ok
}

// Client sends signed requests for one credential
type Client struct {
	transport *exchange.Transport
	signer    signing.Binance
	endpoints Endpoints
}

// NewClient creates a Client for cred
func NewClient(cred exchange.Credential, endpoints Endpoints, transport *exchange.Transport, recvWindow int64) *Client {
	return &Client{
		transport: transport,
		signer: signing.Binance{
			APIKey:     strings.TrimSpace(cred.APIKey),
			Secret:     strings.TrimSpace(cred.APISecret),
			RecvWindow: recvWindow,
		},
		endpoints: endpoints,
	}
}

// WithClock overrides the signing clock
func (c *Client) WithClock(clock signing.Clock) *Client {
	c.signer.Now = clock
	return c
}

// signedRequest signs params and sends them. GET requests are retried by the
// transport on transport failures and 5xx responses.
func (c *Client) signedRequest(ctx context.Context, method, baseURL, path string, params url.Values) (*exchange.Response, error) {
	endpoint := strings.TrimRight(baseURL, "/") + path
	build := func(ctx context.Context) (*http.Request, error) {
		query, headers := c.signer.Sign(params)
		req, err := http.NewRequestWithContext(ctx, method, endpoint+"?"+query, nil)
		if err != nil {
			return nil, err
		}
		req.Header = headers
		return req, nil
	}
	return c.transport.Do(ctx, build, method == http.MethodGet)
}

// signedGetJSON performs a signed GET and decodes a 2xx body into v
func (c *Client) signedGetJSON(ctx context.Context, baseURL, path string, params url.Values, v interface{}) error {
	resp, err := c.signedRequest(ctx, http.MethodGet, baseURL, path, params)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return parseError(resp)
	}
	return exchange.DecodeJSON(resp.Body, v)
}
