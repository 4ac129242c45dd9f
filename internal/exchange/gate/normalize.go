package gate

import (
	"order-desk/internal/exchange"
)

// normalizeSpotOrder maps a Gate spot order onto exchange.Order
func normalizeSpotOrder(raw map[string]interface{}) exchange.Order {
	orderID := exchange.StringPtr(raw["id"])
	var clientOrderID *string
	if text := exchange.Text(raw["text"]); text != "" && text != "apiv4" {
		clientOrderID = &text
	}

	executed := exchange.DecimalPtr(raw["filled_amount"])
	if executed == nil {
		amount, okAmount := exchange.ParseDecimal(raw["amount"])
		left, okLeft := exchange.ParseDecimal(raw["left"])
		if okAmount && okLeft {
			executed = exchange.DecimalString(amount.Sub(left))
		}
	}

	return exchange.Order{
		ID:            exchange.OrderKeyFor(exchange.Gate, exchange.SourceGateSpot, orderID, clientOrderID),
		Exchange:      exchange.Gate,
		Source:        exchange.SourceGateSpot,
		Symbol:        exchange.Text(raw["currency_pair"]),
		Side:          exchange.StringPtr(raw["side"]),
		OrderType:     exchange.StringPtr(raw["type"]),
		Price:         exchange.DecimalPtr(raw["price"]),
		OrigQty:       exchange.DecimalPtr(raw["amount"]),
		ExecutedQty:   executed,
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		Status:        exchange.StringPtr(raw["status"]),
		Time:          exchange.Int64Ptr(raw["create_time_ms"]),
		UpdateTime:    exchange.Int64Ptr(raw["update_time_ms"]),
	}
}

// normalizeFuturesOrder maps a Gate futures order onto exchange.Order. Size is
// signed: positive is a buy.
func normalizeFuturesOrder(raw map[string]interface{}) exchange.Order {
	orderID := exchange.StringPtr(raw["id"])
	var clientOrderID *string
	if text := exchange.Text(raw["text"]); text != "" && text != "apiv4" {
		clientOrderID = &text
	}

	var side, origQty, executed *string
	if size, ok := exchange.ParseDecimal(raw["size"]); ok {
		if size.IsPositive() {
			side = exchange.Str("buy")
		} else {
			side = exchange.Str("sell")
		}
		origQty = exchange.DecimalString(size.Abs())
		if left, ok := exchange.ParseDecimal(raw["left"]); ok {
			executed = exchange.DecimalString(size.Abs().Sub(left.Abs()))
		}
	}

	orderType := exchange.Str("limit")
	if price, ok := exchange.ParseDecimal(raw["price"]); ok && price.IsZero() && exchange.Text(raw["tif"]) == "ioc" {
		orderType = exchange.Str("market")
	}

	var reduceOnly *bool
	if b, ok := raw["is_reduce_only"].(bool); ok {
		reduceOnly = &b
	}

	return exchange.Order{
		ID:            exchange.OrderKeyFor(exchange.Gate, exchange.SourceGateFutures, orderID, clientOrderID),
		Exchange:      exchange.Gate,
		Source:        exchange.SourceGateFutures,
		Symbol:        exchange.Text(raw["contract"]),
		Side:          side,
		OrderType:     orderType,
		Price:         exchange.DecimalPtr(raw["price"]),
		OrigQty:       origQty,
		ExecutedQty:   executed,
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		Status:        exchange.StringPtr(raw["status"]),
		ReduceOnly:    reduceOnly,
		Time:          exchange.SecondsToMillis(raw["create_time"]),
		UpdateTime:    exchange.SecondsToMillis(raw["update_time"]),
	}
}

// flattenSpotOrders accepts the three shapes /spot/open_orders is known to
// return: per-pair groups, a flat list, or an object with an orders field.
func flattenSpotOrders(payload interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch x := payload.(type) {
	case []interface{}:
		for _, item := range x {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if nested, ok := m["orders"].([]interface{}); ok {
				for _, o := range nested {
					if om, ok := o.(map[string]interface{}); ok {
						out = append(out, om)
					}
				}
				continue
			}
			out = append(out, m)
		}
	case map[string]interface{}:
		if nested, ok := x["orders"].([]interface{}); ok {
			return flattenSpotOrders(nested)
		}
	}
	return out
}
