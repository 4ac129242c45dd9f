// Package okx implements the order adapters for OKX v5 SWAP, SPOT and MARGIN instruments.
package okx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"order-desk/internal/exchange"
	"order-desk/internal/signing"
)

// BaseURL is the production OKX REST URL
const BaseURL = "https://www.okx.com"

const (
	pendingOrdersPath = "/api/v5/trade/orders-pending"
	cancelOrderPath   = "/api/v5/trade/cancel-order"
	orderPath         = "/api/v5/trade/order"
	pageLimit         = 100
	defaultMaxPages   = 20
)

// Options configures an OKX client
type Options struct {
	BaseURL   string
	Simulated bool
	MaxPages  int
}

// Client sends signed v5 requests for one credential
type Client struct {
	transport *exchange.Transport
	signer    *signing.OKX
	baseURL   string
	maxPages  int
}

// NewClient creates a Client for cred. A credential without passphrase is a
// ConfigurationError and no client is built.
func NewClient(cred exchange.Credential, opts Options, transport *exchange.Transport) (*Client, error) {
	signer, err := signing.NewOKX(strings.TrimSpace(cred.APIKey), strings.TrimSpace(cred.APISecret),
		strings.TrimSpace(cred.Passphrase), opts.Simulated)
	if err != nil {
		return nil, err
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Client{
		transport: transport,
		signer:    signer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxPages:  maxPages,
	}, nil
}

// WithClock overrides the signing clock
func (c *Client) WithClock(clock signing.Clock) *Client {
	c.signer.Now = clock
	return c
}

// envelope is the v5 response wrapper
type envelope struct {
	Code interface{}              `json:"code"`
	Msg  string                   `json:"msg"`
	Data []map[string]interface{} `json:"data"`
}

func (e *envelope) ok() bool {
	code := strings.TrimSpace(exchange.Text(e.Code))
	return code == "" || code == "0"
}

// do signs and sends a request and decodes the envelope. GETs are retried by
// the transport; POSTs are sent once.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}) (*envelope, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}

	build := func(ctx context.Context) (*http.Request, error) {
		requestPath, headers, err := c.signer.Sign(method, path, query, body)
		if err != nil {
			return nil, err
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, reader)
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

	var env envelope
	decodeErr := exchange.DecodeJSON(resp.Body, &env)
	if !resp.OK() {
		if decodeErr == nil && env.Code != nil {
			return nil, rejection(resp.Status, exchange.Text(env.Code), env.Msg)
		}
		return nil, &exchange.ExchangeRejection{
			Exchange: exchange.OKX,
			Status:   resp.Status,
			Message:  strings.TrimSpace(string(truncate(resp.Body))),
		}
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return &env, nil
}

func truncate(b []byte) []byte {
	if len(b) > 500 {
		return append(b[:500:500], "..."...)
	}
	return b
}
