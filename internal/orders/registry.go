package orders

import (
	"context"
	"net/http"
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/exchange/binance"
	"order-desk/internal/exchange/gate"
	"order-desk/internal/exchange/okx"
)

// CredentialSource resolves the decrypted credential for one request.
type CredentialSource interface {
	Credential(ctx context.Context, exchangeName, label string) (exchange.Credential, error)
}

// AdapterFactory builds request-scoped adapters
type AdapterFactory interface {
	NewAdapter(cred exchange.Credential, source string, gateOpts *GateSelection) (exchange.Adapter, error)
}

// ExchangeConfig holds the process-wide, immutable exchange settings
type ExchangeConfig struct {
	Binance           binance.Endpoints
	BinanceRecvWindow int64
	OKX               okx.Options
	Gate              gate.Options
}

// Registry builds exchange adapters over one shared transport
type Registry struct {
	transport *exchange.Transport
	config    ExchangeConfig
}

// NewRegistry creates a Registry. A nil transport gets a default one.
func NewRegistry(transport *exchange.Transport, cfg ExchangeConfig) *Registry {
	if transport == nil {
		transport = exchange.NewTransport(&http.Client{Timeout: exchange.DefaultRequestTimeout})
	}
	return &Registry{transport: transport, config: cfg}
}

// BinanceClient creates a Binance client for cred
func (r *Registry) BinanceClient(cred exchange.Credential) *binance.Client {
	return binance.NewClient(cred, r.config.Binance, r.transport, r.config.BinanceRecvWindow)
}

// NewAdapter builds the adapter for source. gateOpts overrides the default
// Gate spot account and settle currency when set.
func (r *Registry) NewAdapter(cred exchange.Credential, source string, gateOpts *GateSelection) (exchange.Adapter, error) {
	switch {
	case binance.IsSource(source):
		return binance.NewAdapter(r.BinanceClient(cred), source)
	case okx.IsSource(source):
		client, err := okx.NewClient(cred, r.config.OKX, r.transport)
		if err != nil {
			return nil, err
		}
		return okx.NewAdapter(client, source)
	case gate.IsSource(source):
		opts := r.config.Gate
		if gateOpts != nil {
			if acct := strings.TrimSpace(gateOpts.SpotAccount); acct != "" {
				opts.SpotAccount = acct
			}
			if settle := strings.TrimSpace(gateOpts.Settle); settle != "" {
				opts.Settle = strings.ToLower(settle)
			}
		}
		return gate.NewAdapter(gate.NewClient(cred, opts, r.transport), source)
	}
	return nil, exchange.NewConfigurationError("source", "unsupported source %q", source)
}
