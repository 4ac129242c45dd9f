package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

// DefaultAdapterTimeout bounds each adapter call when none is configured
const DefaultAdapterTimeout = 10 * time.Second

// QueryRequest asks for the open orders of one account
type QueryRequest struct {
	Exchange string            `json:"exchange"`
	Account  string            `json:"account"`
	Binance  *BinanceSelection `json:"binance,omitempty"`
	OKX      *OKXSelection     `json:"okx,omitempty"`
	Gate     *GateSelection    `json:"gate,omitempty"`
}

// LookupRequest asks for one order by id or client id
type LookupRequest struct {
	Exchange      string         `json:"exchange"`
	Account       string         `json:"account"`
	Source        string         `json:"source"`
	Symbol        string         `json:"symbol"`
	OrderID       string         `json:"order_id,omitempty"`
	ClientOrderID string         `json:"client_order_id,omitempty"`
	Gate          *GateSelection `json:"gate,omitempty"`
}

// QueryResponse carries merged orders plus one "<source>: <error>" entry per failed adapter
type QueryResponse struct {
	Orders []exchange.Order `json:"orders"`
	Errors []string         `json:"errors"`
}

// Aggregator fans a query out to the enabled adapters and merges the results
type Aggregator struct {
	credentials CredentialSource
	factory     AdapterFactory
	timeout     time.Duration
	metrics     *Metrics
}

// NewAggregator creates an Aggregator
func NewAggregator(credentials CredentialSource, factory AdapterFactory, timeout time.Duration, metrics *Metrics) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultAdapterTimeout
	}
	return &Aggregator{credentials: credentials, factory: factory, timeout: timeout, metrics: metrics}
}

type adapterResult struct {
	orders []exchange.Order
	err    error
}

// Query returns every open order for the selected sources. A failing adapter
// contributes an error string and no orders; the rest of the result stands.
func (a *Aggregator) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	exchangeName, err := normalizeExchange(req.Exchange)
	if err != nil {
		return QueryResponse{}, err
	}
	account, err := normalizeAccount(req.Account)
	if err != nil {
		return QueryResponse{}, err
	}

	sources := SelectedSources(exchangeName, req.Binance, req.OKX, req.Gate)
	resp := QueryResponse{Orders: []exchange.Order{}, Errors: []string{}}
	if len(sources) == 0 {
		return resp, nil
	}

	cred, err := a.credentials.Credential(ctx, exchangeName, account)
	if err != nil {
		return QueryResponse{}, err
	}

	adapters := make([]exchange.Adapter, len(sources))
	for i, source := range sources {
		adapter, err := a.factory.NewAdapter(cred, source, req.Gate)
		if err != nil {
			return QueryResponse{}, err
		}
		adapters[i] = adapter
	}

	log := logging.FromContext(ctx).WithComponent("orders")
	log.Info("query start", "exchange", exchangeName, "account", account, "sources", strings.Join(sources, ","))

	results := make([]adapterResult, len(adapters))
	p := pool.New().WithMaxGoroutines(len(adapters))
	for i, adapter := range adapters {
		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					results[i] = adapterResult{err: fmt.Errorf("panic: %v", r)}
				}
			}()

			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			orders, err := adapter.ListOpenOrders(callCtx)
			a.metrics.recordAdapterCall(ctx, exchangeName, adapter.Source(), err, time.Since(start))
			if err != nil {
				results[i] = adapterResult{err: err}
				return
			}
			sortOrders(orders)
			results[i] = adapterResult{orders: orders}
		})
	}
	p.Wait()

	for i, r := range results {
		if r.err != nil {
			source := adapters[i].Source()
			log.Warn("adapter failed", "source", source, "error", r.err)
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", source, r.err))
			continue
		}
		resp.Orders = append(resp.Orders, r.orders...)
	}

	log.Info("query done", "orders", len(resp.Orders), "errors", len(resp.Errors))
	return resp, nil
}

// Lookup fetches a single order. Adapter failures are reported in Errors.
func (a *Aggregator) Lookup(ctx context.Context, req LookupRequest) (QueryResponse, error) {
	exchangeName, err := normalizeExchange(req.Exchange)
	if err != nil {
		return QueryResponse{}, err
	}
	account, err := normalizeAccount(req.Account)
	if err != nil {
		return QueryResponse{}, err
	}

	ref := exchange.OrderRef{
		Source:        strings.TrimSpace(req.Source),
		Symbol:        strings.TrimSpace(req.Symbol),
		OrderID:       strings.TrimSpace(req.OrderID),
		ClientOrderID: strings.TrimSpace(req.ClientOrderID),
	}
	if exchangeName == exchange.Binance {
		ref.Symbol = strings.ToUpper(ref.Symbol)
	}
	if ref.Symbol == "" {
		return QueryResponse{}, exchange.NewConfigurationError("symbol", "Symbol is required")
	}
	if err := validateRef(exchangeName, ref); err != nil {
		return QueryResponse{}, err
	}

	cred, err := a.credentials.Credential(ctx, exchangeName, account)
	if err != nil {
		return QueryResponse{}, err
	}
	adapter, err := a.factory.NewAdapter(cred, ref.Source, req.Gate)
	if err != nil {
		return QueryResponse{}, err
	}

	logging.FromContext(ctx).WithComponent("orders").Info("order lookup",
		"exchange", exchangeName, "account", account, "source", ref.Source, "symbol", ref.Symbol)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	order, err := adapter.LookupOrder(callCtx, ref)
	a.metrics.recordAdapterCall(ctx, exchangeName, ref.Source, err, time.Since(start))

	resp := QueryResponse{Orders: []exchange.Order{}, Errors: []string{}}
	if err != nil {
		resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", ref.Source, err))
		return resp, nil
	}
	resp.Orders = append(resp.Orders, order)
	return resp, nil
}

// sortOrders orders by symbol ascending, newest first, then order id
func sortOrders(orders []exchange.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		ta, tb := timeOf(a), timeOf(b)
		if ta != tb {
			return ta > tb
		}
		return derefString(a.OrderID) < derefString(b.OrderID)
	})
}

func timeOf(o exchange.Order) int64 {
	if o.Time == nil {
		return -1
	}
	return *o.Time
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
