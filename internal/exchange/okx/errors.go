package okx

import "order-desk/internal/exchange"

// sCodes meaning the order is already in a final state
var terminalCodes = map[string]string{
	"51400": "already filled, canceled or does not exist",
	"51401": "already canceled",
	"51402": "already filled",
	"51410": "cancel already pending",
}

func rejection(status int, code, msg string) *exchange.ExchangeRejection {
	return &exchange.ExchangeRejection{
		Exchange: exchange.OKX,
		Status:   status,
		Code:     code,
		Message:  msg,
		Terminal: terminalCodes[code],
	}
}
