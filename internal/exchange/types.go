// Package exchange holds the types shared by every exchange adapter: the
// normalized Order, cancel references and results, the error taxonomy and
// the HTTP transport the adapters sign requests through.
package exchange

import (
	"context"
	"fmt"
	"time"
)

// Supported exchanges
const (
	Binance = "binance"
	OKX     = "okx"
	Gate    = "gate"
)

// Order sources, one per exchange product
const (
	SourcePAPIUM      = "papi_um"
	SourcePAPISpot    = "papi_spot"
	SourceFAPIUM      = "fapi_um"
	SourceSpot        = "spot"
	SourceOKXSwap     = "okx_swap"
	SourceOKXSpot     = "okx_spot"
	SourceOKXMargin   = "okx_margin"
	SourceGateSpot    = "gate_spot"
	SourceGateFutures = "gate_futures"
)

// ValidExchange reports whether name is a supported exchange.
func ValidExchange(name string) bool {
	switch name {
	case Binance, OKX, Gate:
		return true
	}
	return false
}

// Credential is the decrypted view of a stored API key, valid for one request.
type Credential struct {
	Exchange   string    `json:"exchange"`
	Label      string    `json:"label"`
	APIKey     string    `json:"-"`
	APISecret  string    `json:"-"`
	Passphrase string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Order is the exchange-agnostic open order shape
type Order struct {
	ID            string  `json:"id"`
	Exchange      string  `json:"exchange"`
	Source        string  `json:"source"`
	Symbol        string  `json:"symbol"`
	Side          *string `json:"side"`
	OrderType     *string `json:"order_type"`
	Price         *string `json:"price"`
	OrigQty       *string `json:"orig_qty"`
	ExecutedQty   *string `json:"executed_qty"`
	OrderID       *string `json:"order_id"`
	ClientOrderID *string `json:"client_order_id"`
	Status        *string `json:"status"`
	PositionSide  *string `json:"position_side"`
	ReduceOnly    *bool   `json:"reduce_only"`
	Time          *int64  `json:"time"`
	UpdateTime    *int64  `json:"update_time"`
}

// OrderRef identifies one order to cancel or look up
type OrderRef struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	Symbol        string `json:"symbol"`
	OrderID       string `json:"order_id,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// HasIdentifier reports whether the ref carries an order id or a client order id.
func (r OrderRef) HasIdentifier() bool {
	return r.OrderID != "" || r.ClientOrderID != ""
}

// Cancel outcome kinds
const (
	KindConfiguration = "configuration"
	KindTransport     = "transport"
	KindRejected      = "rejected"
	KindRateLimited   = "rate_limited"
	KindTerminal      = "terminal"
)

// CancelResult reports the outcome of cancelling one OrderRef
type CancelResult struct {
	ID     string  `json:"id"`
	OK     bool    `json:"ok"`
	Error  *string `json:"error"`
	Kind   string  `json:"kind,omitempty"`
	Status int     `json:"status,omitempty"`
}

// Adapter talks to one product of one exchange on behalf of one credential.
type Adapter interface {
	Exchange() string
	Source() string
	ListOpenOrders(ctx context.Context) ([]Order, error)
	CancelOrder(ctx context.Context, ref OrderRef) error
	LookupOrder(ctx context.Context, ref OrderRef) (Order, error)
}

// OrderKey builds the stable identifier of an order. When the exchange did
// not return an order id the client id is used with a "cid-" prefix.
func OrderKey(exchange, source, orderID string) string {
	return exchange + ":" + source + ":" + orderID
}

// OrderKeyFor picks the identifier OrderKey should use for an order.
func OrderKeyFor(exchange, source string, orderID, clientOrderID *string) string {
	switch {
	case orderID != nil && *orderID != "":
		return OrderKey(exchange, source, *orderID)
	case clientOrderID != nil && *clientOrderID != "":
		return OrderKey(exchange, source, "cid-"+*clientOrderID)
	default:
		return OrderKey(exchange, source, "")
	}
}

// FillMissingKeys gives orders that carry neither an order id nor a client id
// an "idx-<n>" key, numbered in list order, so ids stay unique within one listing.
func FillMissingKeys(orders []Order) {
	n := 0
	for i := range orders {
		o := &orders[i]
		if hasText(o.OrderID) || hasText(o.ClientOrderID) {
			continue
		}
		o.ID = OrderKey(o.Exchange, o.Source, fmt.Sprintf("idx-%d", n))
		n++
	}
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}
