package binance

import (
	"strings"

	"order-desk/internal/exchange"
)

// rawOrder is the open-order shape shared by the spot, margin, futures and PAPI endpoints
type rawOrder map[string]interface{}

func (r rawOrder) first(keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil && exchange.Text(v) != "" {
			return v
		}
	}
	return nil
}

// normalizeOrder maps a Binance order payload onto exchange.Order
func normalizeOrder(source string, raw rawOrder) exchange.Order {
	orderID := exchange.StringPtr(raw.first("orderId", "orderID", "order_id"))
	clientOrderID := exchange.StringPtr(raw.first("clientOrderId", "client_order_id"))

	var reduceOnly *bool
	if b, ok := raw["reduceOnly"].(bool); ok {
		reduceOnly = &b
	}

	return exchange.Order{
		ID:            exchange.OrderKeyFor(exchange.Binance, source, orderID, clientOrderID),
		Exchange:      exchange.Binance,
		Source:        source,
		Symbol:        strings.ToUpper(exchange.Text(raw["symbol"])),
		Side:          exchange.StringPtr(raw["side"]),
		OrderType:     exchange.StringPtr(raw["type"]),
		Price:         exchange.DecimalPtr(raw["price"]),
		OrigQty:       exchange.DecimalPtr(raw.first("origQty", "origQuantity")),
		ExecutedQty:   exchange.DecimalPtr(raw["executedQty"]),
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		Status:        exchange.StringPtr(raw["status"]),
		PositionSide:  exchange.StringPtr(raw["positionSide"]),
		ReduceOnly:    reduceOnly,
		Time:          exchange.Int64Ptr(raw["time"]),
		UpdateTime:    exchange.Int64Ptr(raw["updateTime"]),
	}
}
