package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"order-desk/internal/logging"
)

const (
	// DefaultBodyLimit caps how much of a response body is read
	DefaultBodyLimit = 4 << 20
	// DefaultRequestTimeout applies when the shared client has no timeout of its own
	DefaultRequestTimeout = 15 * time.Second
)

// Response is a fully read HTTP response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// RequestBuilder creates a freshly signed request. It is called once per
// attempt so timestamps are never reused across retries.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Transport executes signed exchange requests over a shared http.Client.
type Transport struct {
	client     *http.Client
	maxRetries int
	bodyLimit  int64
	newBackOff func() backoff.BackOff
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithMaxRetries sets the number of extra attempts for idempotent requests.
func WithMaxRetries(n int) TransportOption {
	return func(t *Transport) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithBackOff overrides the retry schedule.
func WithBackOff(f func() backoff.BackOff) TransportOption {
	return func(t *Transport) {
		t.newBackOff = f
	}
}

// NewTransport creates a Transport around client. A nil client gets a default one.
func NewTransport(client *http.Client, opts ...TransportOption) *Transport {
	if client == nil {
		client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	t := &Transport{
		client:     client,
		maxRetries: 2,
		bodyLimit:  DefaultBodyLimit,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends the request built by build. When idempotent is true, transport
// failures and 5xx responses are retried with exponential backoff. Non-2xx
// responses are returned without error so callers can decode the exchange's
// error envelope.
func (t *Transport) Do(ctx context.Context, build RequestBuilder, idempotent bool) (*Response, error) {
	attempts := 1
	if idempotent {
		attempts += t.maxRetries
	}

	var b backoff.BackOff
	var lastResp *Response
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if b == nil {
				b = t.newBackOff()
			}
			delay := b.NextBackOff()
			if delay == backoff.Stop {
				break
			}
			select {
			case <-ctx.Done():
				return nil, t.wrap(lastOp(lastErr), "", ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := t.once(ctx, build)
		if err != nil {
			lastErr, lastResp = err, nil
			if ctx.Err() != nil {
				return nil, err
			}
			if attempt+1 < attempts {
				logging.FromContext(ctx).Debug("exchange request failed, retrying",
					"attempt", attempt+1, "error", err)
			}
			continue
		}
		if resp.Status >= 500 && attempt+1 < attempts {
			lastErr, lastResp = nil, resp
			logging.FromContext(ctx).Debug("exchange returned server error, retrying",
				"attempt", attempt+1, "status", resp.Status)
			continue
		}
		return resp, nil
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

func (t *Transport) once(ctx context.Context, build RequestBuilder) (*Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.wrap(req.Method, redactedURL(req), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.bodyLimit))
	if err != nil {
		return nil, t.wrap(req.Method, redactedURL(req), err)
	}

	logging.FromContext(ctx).Debug("exchange response",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"body", logging.Truncate(string(body), 500))

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (t *Transport) wrap(op, url string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Op: op, URL: url, Err: err}
}

func lastOp(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Op
	}
	return "request"
}

// redactedURL drops the query string, which carries signatures.
func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
