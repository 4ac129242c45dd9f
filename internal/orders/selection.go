package orders

import (
	"strings"

	"order-desk/internal/exchange"
	"order-desk/internal/exchange/binance"
	"order-desk/internal/exchange/gate"
	"order-desk/internal/exchange/okx"
)

// BinanceSelection picks the Binance sources to query
type BinanceSelection struct {
	PAPIUM   bool `json:"papi_um"`
	PAPISpot bool `json:"papi_spot"`
	FAPIUM   bool `json:"fapi_um"`
	Spot     bool `json:"spot"`
}

// OKXSelection picks the OKX instrument types to query
type OKXSelection struct {
	Swap   bool `json:"swap"`
	Spot   bool `json:"spot"`
	Margin bool `json:"margin"`
}

// GateSelection picks the Gate products and overrides the account and settle currency
type GateSelection struct {
	Spot        bool   `json:"spot"`
	Futures     bool   `json:"futures"`
	SpotAccount string `json:"spot_account,omitempty"`
	Settle      string `json:"settle,omitempty"`
}

// DefaultBinanceSelection enables everything except classic spot
func DefaultBinanceSelection() BinanceSelection {
	return BinanceSelection{PAPIUM: true, PAPISpot: true, FAPIUM: true}
}

// DefaultOKXSelection enables swaps only
func DefaultOKXSelection() OKXSelection {
	return OKXSelection{Swap: true}
}

// DefaultGateSelection enables spot and futures
func DefaultGateSelection() GateSelection {
	return GateSelection{Spot: true, Futures: true}
}

func (s BinanceSelection) sources() []string {
	enabled := map[string]bool{
		exchange.SourcePAPIUM:   s.PAPIUM,
		exchange.SourcePAPISpot: s.PAPISpot,
		exchange.SourceFAPIUM:   s.FAPIUM,
		exchange.SourceSpot:     s.Spot,
	}
	return filter(binance.Sources, enabled)
}

func (s OKXSelection) sources() []string {
	enabled := map[string]bool{
		exchange.SourceOKXSwap:   s.Swap,
		exchange.SourceOKXSpot:   s.Spot,
		exchange.SourceOKXMargin: s.Margin,
	}
	return filter(okx.Sources, enabled)
}

func (s GateSelection) sources() []string {
	enabled := map[string]bool{
		exchange.SourceGateSpot:    s.Spot,
		exchange.SourceGateFutures: s.Futures,
	}
	return filter(gate.Sources, enabled)
}

// filter keeps canonical order
func filter(canonical []string, enabled map[string]bool) []string {
	out := make([]string, 0, len(canonical))
	for _, s := range canonical {
		if enabled[s] {
			out = append(out, s)
		}
	}
	return out
}

// SelectedSources returns the enabled sources of exchangeName in canonical
// order, applying defaults for nil selections.
func SelectedSources(exchangeName string, b *BinanceSelection, o *OKXSelection, g *GateSelection) []string {
	switch exchangeName {
	case exchange.Binance:
		if b == nil {
			d := DefaultBinanceSelection()
			b = &d
		}
		return b.sources()
	case exchange.OKX:
		if o == nil {
			d := DefaultOKXSelection()
			o = &d
		}
		return o.sources()
	case exchange.Gate:
		if g == nil {
			d := DefaultGateSelection()
			g = &d
		}
		return g.sources()
	}
	return nil
}

// ValidSource reports whether source belongs to exchangeName
func ValidSource(exchangeName, source string) bool {
	switch exchangeName {
	case exchange.Binance:
		return binance.IsSource(source)
	case exchange.OKX:
		return okx.IsSource(source)
	case exchange.Gate:
		return gate.IsSource(source)
	}
	return false
}

func normalizeExchange(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !exchange.ValidExchange(name) {
		return "", exchange.NewConfigurationError("exchange", "unsupported exchange %q", name)
	}
	return name, nil
}

func normalizeAccount(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", exchange.NewConfigurationError("account", "Account is required")
	}
	return label, nil
}

// validateRef checks a cancel or lookup reference before any network call
func validateRef(exchangeName string, ref exchange.OrderRef) error {
	if !ValidSource(exchangeName, ref.Source) {
		return exchange.NewConfigurationError("source", "unsupported %s source %q", exchangeName, ref.Source)
	}
	if strings.TrimSpace(ref.Symbol) == "" && ref.Source != exchange.SourceGateFutures {
		return exchange.NewConfigurationError("symbol", "symbol is required")
	}
	if !ref.HasIdentifier() {
		return exchange.NewConfigurationError("order_id", "order_id or client_order_id required")
	}
	if exchangeName == exchange.Gate && ref.OrderID == "" {
		return exchange.NewConfigurationError("order_id", "order_id required for gate orders")
	}
	return nil
}
