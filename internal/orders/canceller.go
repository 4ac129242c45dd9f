package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

// Cancel pacing defaults
const (
	DefaultCancelTimeout     = 10 * time.Second
	DefaultCancelConcurrency = 2
	DefaultCancelRate        = 5.0
)

// CancelRequest asks to cancel a batch of orders on one account
type CancelRequest struct {
	Exchange string              `json:"exchange"`
	Account  string              `json:"account"`
	Orders   []exchange.OrderRef `json:"orders"`
	Gate     *GateSelection      `json:"gate,omitempty"`
}

// CancelResponse holds one result per requested order, in request order
type CancelResponse struct {
	Results []exchange.CancelResult `json:"results"`
}

// CancellerConfig tunes per-source pacing
type CancellerConfig struct {
	Timeout       time.Duration
	Concurrency   int
	RatePerSecond float64
}

// Canceller executes batch cancellation with per-order reporting
type Canceller struct {
	credentials CredentialSource
	factory     AdapterFactory
	config      CancellerConfig
	metrics     *Metrics
}

// NewCanceller creates a Canceller, filling zero config values with defaults
func NewCanceller(credentials CredentialSource, factory AdapterFactory, cfg CancellerConfig, metrics *Metrics) *Canceller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCancelTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultCancelConcurrency
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultCancelRate
	}
	return &Canceller{credentials: credentials, factory: factory, config: cfg, metrics: metrics}
}

type cancelGroup struct {
	source  string
	indexes []int
	adapter exchange.Adapter
}

// Cancel cancels every order in req. Each order gets exactly one result at its
// own index; failures never abort sibling orders. Cancels are not retried.
func (c *Canceller) Cancel(ctx context.Context, req CancelRequest) (CancelResponse, error) {
	exchangeName, err := normalizeExchange(req.Exchange)
	if err != nil {
		return CancelResponse{}, err
	}
	account, err := normalizeAccount(req.Account)
	if err != nil {
		return CancelResponse{}, err
	}

	results := make([]exchange.CancelResult, len(req.Orders))
	if len(req.Orders) == 0 {
		return CancelResponse{Results: results}, nil
	}

	refs := make([]exchange.OrderRef, len(req.Orders))
	var groups []*cancelGroup
	bySource := map[string]*cancelGroup{}
	for i, raw := range req.Orders {
		ref := normalizeRef(exchangeName, raw)
		refs[i] = ref
		results[i] = exchange.CancelResult{ID: raw.ID}

		if err := validateRef(exchangeName, ref); err != nil {
			c.fail(ctx, exchangeName, ref, &results[i], err)
			continue
		}
		g, ok := bySource[ref.Source]
		if !ok {
			g = &cancelGroup{source: ref.Source}
			bySource[ref.Source] = g
			groups = append(groups, g)
		}
		g.indexes = append(g.indexes, i)
	}

	if len(groups) == 0 {
		return CancelResponse{Results: results}, nil
	}

	cred, err := c.credentials.Credential(ctx, exchangeName, account)
	if err != nil {
		return CancelResponse{}, err
	}
	for _, g := range groups {
		adapter, err := c.factory.NewAdapter(cred, g.source, req.Gate)
		if err != nil {
			return CancelResponse{}, err
		}
		g.adapter = adapter
	}

	log := logging.FromContext(ctx).WithComponent("cancel")
	log.Info("cancel start", "exchange", exchangeName, "account", account, "orders", len(req.Orders), "sources", len(groups))

	outer := pool.New().WithMaxGoroutines(len(groups))
	for _, g := range groups {
		outer.Go(func() {
			c.cancelGroup(ctx, exchangeName, g, refs, results)
		})
	}
	outer.Wait()

	okCount := 0
	for _, r := range results {
		if r.OK {
			okCount++
		}
	}
	log.Info("cancel done", "ok", okCount, "failed", len(results)-okCount)
	return CancelResponse{Results: results}, nil
}

// cancelGroup runs the cancels of one source with bounded concurrency and a
// request-scoped rate limiter.
func (c *Canceller) cancelGroup(ctx context.Context, exchangeName string, g *cancelGroup, refs []exchange.OrderRef, results []exchange.CancelResult) {
	limiter := rate.NewLimiter(rate.Limit(c.config.RatePerSecond), 1)
	workers := c.config.Concurrency
	if workers > len(g.indexes) {
		workers = len(g.indexes)
	}

	p := pool.New().WithMaxGoroutines(workers)
	for _, idx := range g.indexes {
		p.Go(func() {
			ref := refs[idx]
			result := &results[idx]
			defer func() {
				if r := recover(); r != nil {
					c.fail(ctx, exchangeName, ref, result, fmt.Errorf("panic: %v", r))
				}
			}()

			if err := limiter.Wait(ctx); err != nil {
				c.fail(ctx, exchangeName, ref, result, &exchange.TransportError{Op: "cancel", Err: err})
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()

			start := time.Now()
			err := g.adapter.CancelOrder(callCtx, ref)
			c.metrics.recordAdapterCall(ctx, exchangeName, ref.Source, err, time.Since(start))
			if err != nil {
				c.fail(ctx, exchangeName, ref, result, err)
				return
			}
			result.OK = true
			c.metrics.recordCancel(ctx, exchangeName, ref.Source, "")
		})
	}
	p.Wait()
}

func (c *Canceller) fail(ctx context.Context, exchangeName string, ref exchange.OrderRef, result *exchange.CancelResult, err error) {
	msg := err.Error()
	result.OK = false
	result.Error = &msg
	result.Kind = exchange.Classify(err)
	result.Status = exchange.StatusOf(err)
	c.metrics.recordCancel(ctx, exchangeName, ref.Source, result.Kind)

	logging.CancelContext(ctx, ref.Source, ref.Symbol, ref.OrderID).Warn("cancel failed",
		"id", result.ID, "kind", result.Kind, "error", msg)
}

func normalizeRef(exchangeName string, ref exchange.OrderRef) exchange.OrderRef {
	ref.Source = strings.TrimSpace(ref.Source)
	ref.Symbol = strings.TrimSpace(ref.Symbol)
	ref.OrderID = strings.TrimSpace(ref.OrderID)
	ref.ClientOrderID = strings.TrimSpace(ref.ClientOrderID)
	if exchangeName == exchange.Binance {
		ref.Symbol = strings.ToUpper(ref.Symbol)
	}
	return ref
}
