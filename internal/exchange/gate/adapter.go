package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

// Sources lists the Gate order sources in canonical order
var Sources = []string{exchange.SourceGateSpot, exchange.SourceGateFutures}

// IsSource reports whether source is a Gate order source
func IsSource(source string) bool {
	return source == exchange.SourceGateSpot || source == exchange.SourceGateFutures
}

// Adapter serves Gate spot or futures orders for one credential
type Adapter struct {
	client *Client
	source string
}

// NewAdapter creates an adapter for source
func NewAdapter(client *Client, source string) (*Adapter, error) {
	if !IsSource(source) {
		return nil, exchange.NewConfigurationError("source", "unsupported gate source %q", source)
	}
	return &Adapter{client: client, source: source}, nil
}

// Exchange returns "gate"
func (a *Adapter) Exchange() string { return exchange.Gate }

// Source returns the order source this adapter serves
func (a *Adapter) Source() string { return a.source }

func (a *Adapter) futuresPath(suffix string) string {
	return "/futures/" + url.PathEscape(a.client.settle) + "/orders" + suffix
}

// ListOpenOrders pages until an empty or short page
func (a *Adapter) ListOpenOrders(ctx context.Context) ([]exchange.Order, error) {
	orders := []exchange.Order{}

	for page := 1; page <= a.client.maxPages; page++ {
		query := url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(pageLimit)},
		}
		path := "/spot/open_orders"
		if a.source == exchange.SourceGateSpot {
			query.Set("account", a.client.spotAccount)
		} else {
			query.Set("status", "open")
			path = a.futuresPath("")
		}

		resp, err := a.client.do(ctx, http.MethodGet, path, query)
		if err != nil {
			return nil, err
		}
		var payload interface{}
		if err := exchange.DecodeJSON(resp.Body, &payload); err != nil {
			return nil, err
		}

		entries, err := a.pageEntries(payload)
		if err != nil {
			return nil, err
		}
		if entries == 0 {
			break
		}

		if a.source == exchange.SourceGateSpot {
			for _, raw := range flattenSpotOrders(payload) {
				orders = append(orders, normalizeSpotOrder(raw))
			}
		} else {
			for _, item := range payload.([]interface{}) {
				if raw, ok := item.(map[string]interface{}); ok {
					orders = append(orders, normalizeFuturesOrder(raw))
				}
			}
		}
		if entries < pageLimit {
			break
		}
	}

	exchange.FillMissingKeys(orders)
	logging.ExchangeContext(ctx, exchange.Gate, a.source).Debug("open orders fetched", "count", len(orders))
	return orders, nil
}

// pageEntries counts the top-level entries of one page, which is what the
// page limit applies to.
func (a *Adapter) pageEntries(payload interface{}) (int, error) {
	switch x := payload.(type) {
	case []interface{}:
		return len(x), nil
	case map[string]interface{}:
		if a.source == exchange.SourceGateSpot {
			nested, _ := x["orders"].([]interface{})
			return len(nested), nil
		}
	}
	return 0, fmt.Errorf("unexpected %s response shape", a.source)
}

func (a *Adapter) orderRequest(ref exchange.OrderRef) (string, url.Values, error) {
	if ref.OrderID == "" {
		return "", nil, exchange.NewConfigurationError("order_id", "order_id required for gate orders")
	}
	symbol := strings.TrimSpace(ref.Symbol)
	id := url.PathEscape(ref.OrderID)

	if a.source == exchange.SourceGateSpot {
		if symbol == "" {
			return "", nil, exchange.NewConfigurationError("symbol", "symbol required for gate spot orders")
		}
		return "/spot/orders/" + id, url.Values{
			"currency_pair": {symbol},
			"account":       {a.client.spotAccount},
		}, nil
	}

	query := url.Values{}
	if symbol != "" {
		query.Set("contract", symbol)
	}
	return a.futuresPath("/" + id), query, nil
}

// CancelOrder cancels ref by order id. Gate cannot cancel by client id on these routes.
func (a *Adapter) CancelOrder(ctx context.Context, ref exchange.OrderRef) error {
	path, query, err := a.orderRequest(ref)
	if err != nil {
		return err
	}
	_, err = a.client.do(ctx, http.MethodDelete, path, query)
	return err
}

// LookupOrder fetches one order by id
func (a *Adapter) LookupOrder(ctx context.Context, ref exchange.OrderRef) (exchange.Order, error) {
	path, query, err := a.orderRequest(ref)
	if err != nil {
		return exchange.Order{}, err
	}
	resp, err := a.client.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return exchange.Order{}, err
	}
	var raw map[string]interface{}
	if err := exchange.DecodeJSON(resp.Body, &raw); err != nil {
		return exchange.Order{}, err
	}
	if raw == nil {
		return exchange.Order{}, errors.New("order not found")
	}
	if a.source == exchange.SourceGateSpot {
		return normalizeSpotOrder(raw), nil
	}
	return normalizeFuturesOrder(raw), nil
}
