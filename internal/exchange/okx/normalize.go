package okx

import (
	"order-desk/internal/exchange"
)

// normalizeOrder maps an OKX order payload onto exchange.Order
func normalizeOrder(source string, raw map[string]interface{}) exchange.Order {
	orderID := exchange.StringPtr(raw["ordId"])
	clientOrderID := exchange.StringPtr(raw["clOrdId"])

	return exchange.Order{
		ID:            exchange.OrderKeyFor(exchange.OKX, source, orderID, clientOrderID),
		Exchange:      exchange.OKX,
		Source:        source,
		Symbol:        exchange.Text(raw["instId"]),
		Side:          exchange.StringPtr(raw["side"]),
		OrderType:     exchange.StringPtr(raw["ordType"]),
		Price:         exchange.DecimalPtr(raw["px"]),
		OrigQty:       exchange.DecimalPtr(raw["sz"]),
		ExecutedQty:   exchange.DecimalPtr(raw["accFillSz"]),
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		Status:        exchange.StringPtr(raw["state"]),
		PositionSide:  exchange.StringPtr(raw["posSide"]),
		ReduceOnly:    exchange.BoolPtr(raw["reduceOnly"]),
		Time:          exchange.Int64Ptr(raw["cTime"]),
		UpdateTime:    exchange.Int64Ptr(raw["uTime"]),
	}
}
