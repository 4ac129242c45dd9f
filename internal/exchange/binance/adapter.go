package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

// Adapter serves one Binance order source for one credential
type Adapter struct {
	client *Client
	source string
	route  route
}

// NewAdapter creates an adapter for source. Unknown sources are a ConfigurationError.
func NewAdapter(client *Client, source string) (*Adapter, error) {
	r, ok := routes[source]
	if !ok {
		return nil, exchange.NewConfigurationError("source", "unsupported binance source %q", source)
	}
	return &Adapter{client: client, source: source, route: r}, nil
}

// Exchange returns "binance"
func (a *Adapter) Exchange() string { return exchange.Binance }

// Source returns the order source this adapter serves
func (a *Adapter) Source() string { return a.source }

func (a *Adapter) baseURL() string {
	return a.route.base(a.client.endpoints)
}

// ListOpenOrders returns every open order on the source
func (a *Adapter) ListOpenOrders(ctx context.Context) ([]exchange.Order, error) {
	var raw []rawOrder
	if err := a.client.signedGetJSON(ctx, a.baseURL(), a.route.openOrders, url.Values{}, &raw); err != nil {
		return nil, err
	}

	orders := make([]exchange.Order, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		orders = append(orders, normalizeOrder(a.source, r))
	}
	exchange.FillMissingKeys(orders)
	logging.ExchangeContext(ctx, exchange.Binance, a.source).Debug("open orders fetched", "count", len(orders))
	return orders, nil
}

// CancelOrder cancels ref by orderId, falling back to origClientOrderId.
// Cancels are sent once and never retried.
func (a *Adapter) CancelOrder(ctx context.Context, ref exchange.OrderRef) error {
	params, err := orderParams(ref)
	if err != nil {
		return err
	}
	resp, err := a.client.signedRequest(ctx, http.MethodDelete, a.baseURL(), a.route.order, params)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return parseError(resp)
	}
	return nil
}

// LookupOrder fetches a single order by id or client id
func (a *Adapter) LookupOrder(ctx context.Context, ref exchange.OrderRef) (exchange.Order, error) {
	params, err := orderParams(ref)
	if err != nil {
		return exchange.Order{}, err
	}
	var raw rawOrder
	if err := a.client.signedGetJSON(ctx, a.baseURL(), a.route.order, params, &raw); err != nil {
		return exchange.Order{}, err
	}
	if raw == nil {
		return exchange.Order{}, fmt.Errorf("unexpected empty order response")
	}
	return normalizeOrder(a.source, raw), nil
}

func orderParams(ref exchange.OrderRef) (url.Values, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ref.Symbol))
	if symbol == "" {
		return nil, exchange.NewConfigurationError("symbol", "symbol is required")
	}
	params := url.Values{"symbol": {symbol}}
	switch {
	case ref.OrderID != "":
		params.Set("orderId", ref.OrderID)
	case ref.ClientOrderID != "":
		params.Set("origClientOrderId", ref.ClientOrderID)
	default:
		return nil, exchange.NewConfigurationError("order_id", "order_id or client_order_id required")
	}
	return params, nil
}
