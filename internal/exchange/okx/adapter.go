package okx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

var instTypes = map[string]string{
	exchange.SourceOKXSwap:   "SWAP",
	exchange.SourceOKXSpot:   "SPOT",
	exchange.SourceOKXMargin: "MARGIN",
}

// Sources lists the OKX order sources in canonical order
var Sources = []string{exchange.SourceOKXSwap, exchange.SourceOKXSpot, exchange.SourceOKXMargin}

// IsSource reports whether source is an OKX order source
func IsSource(source string) bool {
	_, ok := instTypes[source]
	return ok
}

// Adapter serves one OKX instrument type for one credential
type Adapter struct {
	client   *Client
	source   string
	instType string
}

// NewAdapter creates an adapter for source
func NewAdapter(client *Client, source string) (*Adapter, error) {
	instType, ok := instTypes[source]
	if !ok {
		return nil, exchange.NewConfigurationError("source", "unsupported okx source %q", source)
	}
	return &Adapter{client: client, source: source, instType: instType}, nil
}

// Exchange returns "okx"
func (a *Adapter) Exchange() string { return exchange.OKX }

// Source returns the order source this adapter serves
func (a *Adapter) Source() string { return a.source }

// ListOpenOrders pages through orders-pending using the last ordId as cursor.
func (a *Adapter) ListOpenOrders(ctx context.Context) ([]exchange.Order, error) {
	var orders []exchange.Order
	after := ""

	for page := 0; page < a.client.maxPages; page++ {
		query := url.Values{
			"instType": {a.instType},
			"limit":    {strconv.Itoa(pageLimit)},
		}
		if after != "" {
			query.Set("after", after)
		}

		env, err := a.client.do(ctx, http.MethodGet, pendingOrdersPath, query, nil)
		if err != nil {
			return nil, err
		}
		if !env.ok() {
			return nil, rejection(http.StatusOK, exchange.Text(env.Code), env.Msg)
		}

		batch := 0
		for _, raw := range env.Data {
			if raw == nil {
				continue
			}
			orders = append(orders, normalizeOrder(a.source, raw))
			batch++
		}
		if batch < pageLimit {
			break
		}
		last := strings.TrimSpace(exchange.Text(env.Data[len(env.Data)-1]["ordId"]))
		if last == "" || last == after {
			break
		}
		after = last
	}

	exchange.FillMissingKeys(orders)
	logging.ExchangeContext(ctx, exchange.OKX, a.source).Debug("open orders fetched", "count", len(orders))
	if orders == nil {
		orders = []exchange.Order{}
	}
	return orders, nil
}

type cancelBody struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId,omitempty"`
	ClOrdID string `json:"clOrdId,omitempty"`
}

// CancelOrder cancels ref. Success requires both the envelope code and the
// per-order sCode to be "0".
func (a *Adapter) CancelOrder(ctx context.Context, ref exchange.OrderRef) error {
	symbol := strings.TrimSpace(ref.Symbol)
	if symbol == "" {
		return exchange.NewConfigurationError("symbol", "symbol required for okx cancel")
	}
	body := cancelBody{InstID: symbol}
	switch {
	case ref.OrderID != "":
		body.OrdID = ref.OrderID
	case ref.ClientOrderID != "":
		body.ClOrdID = ref.ClientOrderID
	default:
		return exchange.NewConfigurationError("order_id", "order_id or client_order_id required")
	}

	env, err := a.client.do(ctx, http.MethodPost, cancelOrderPath, nil, body)
	if err != nil {
		return err
	}

	if len(env.Data) > 0 && env.Data[0] != nil {
		sCode := strings.TrimSpace(exchange.Text(env.Data[0]["sCode"]))
		if sCode != "" && sCode != "0" {
			return rejection(http.StatusOK, sCode, exchange.Text(env.Data[0]["sMsg"]))
		}
		if sCode == "0" && env.ok() {
			return nil
		}
	}
	if !env.ok() {
		return rejection(http.StatusOK, exchange.Text(env.Code), env.Msg)
	}
	return rejection(http.StatusOK, exchange.Text(env.Code), "cancel response missing sCode")
}

// LookupOrder fetches one order by ordId or clOrdId
func (a *Adapter) LookupOrder(ctx context.Context, ref exchange.OrderRef) (exchange.Order, error) {
	symbol := strings.TrimSpace(ref.Symbol)
	if symbol == "" {
		return exchange.Order{}, exchange.NewConfigurationError("symbol", "symbol is required")
	}
	query := url.Values{"instId": {symbol}}
	switch {
	case ref.OrderID != "":
		query.Set("ordId", ref.OrderID)
	case ref.ClientOrderID != "":
		query.Set("clOrdId", ref.ClientOrderID)
	default:
		return exchange.Order{}, exchange.NewConfigurationError("order_id", "order_id or client_order_id required")
	}

	env, err := a.client.do(ctx, http.MethodGet, orderPath, query, nil)
	if err != nil {
		return exchange.Order{}, err
	}
	if !env.ok() {
		return exchange.Order{}, rejection(http.StatusOK, exchange.Text(env.Code), env.Msg)
	}
	if len(env.Data) == 0 || env.Data[0] == nil {
		return exchange.Order{}, errors.New("order not found")
	}
	return normalizeOrder(a.source, env.Data[0]), nil
}
