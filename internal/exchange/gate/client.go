// Package gate implements the order adapters for Gate v4 spot and futures accounts.
package gate

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/signing"
)

// BaseURL is the production Gate REST URL
const BaseURL = "https://api.gateio.ws"

const (
	pageLimit       = 100
	defaultMaxPages = 50
)

// Options configures a Gate client. SpotAccount and Settle apply when a
// request carries no override.
type Options struct {
	BaseURL     string
	SpotAccount string
	Settle      string
	MaxPages    int
}

// Client sends signed v4 requests for one credential
type Client struct {
	transport   *exchange.Transport
	signer      signing.Gate
	baseURL     string
	spotAccount string
	settle      string
	maxPages    int
}

// NewClient creates a Client for cred
func NewClient(cred exchange.Credential, opts Options, transport *exchange.Transport) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	spotAccount := strings.TrimSpace(opts.SpotAccount)
	if spotAccount == "" {
		spotAccount = "unified"
	}
	settle := strings.ToLower(strings.TrimSpace(opts.Settle))
	if settle == "" {
		settle = "usdt"
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Client{
		transport:   transport,
		signer:      signing.Gate{APIKey: strings.TrimSpace(cred.APIKey), Secret: strings.TrimSpace(cred.APISecret)},
		baseURL:     strings.TrimRight(baseURL, "/"),
		spotAccount: spotAccount,
		settle:      settle,
		maxPages:    maxPages,
	}
}

// WithClock overrides the signing clock
func (c *Client) WithClock(clock signing.Clock) *Client {
	c.signer.Now = clock
	return c
}

// do signs and sends a request without a body. path excludes the /api/v4 prefix.
func (c *Client) do(ctx context.Context, method, path string, query url.Values) (*exchange.Response, error) {
	fullPath := signing.GatePrefix + path
	build := func(ctx context.Context) (*http.Request, error) {
		rawQuery, headers := c.signer.Sign(method, fullPath, query, nil)
		endpoint := c.baseURL + fullPath
		if rawQuery != "" {
			endpoint += "?" + rawQuery
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header = headers
		return req, nil
	}

	resp, err := c.transport.Do(ctx, build, method == http.MethodGet)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, parseError(resp)
	}
	return resp, nil
}
