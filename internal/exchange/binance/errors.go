package binance

import (
	"strings"

	"order-desk/internal/exchange"
)

// Binance error codes with special handling
const (
	codeCancelRejected = "-2011"
	codeNoSuchOrder    = "-2013"
)

type apiError struct {
	Code interface{} `json:"code"`
	Msg  string      `json:"msg"`
}

// parseError turns a non-2xx response into an ExchangeRejection.
func parseError(resp *exchange.Response) error {
	rej := &exchange.ExchangeRejection{
		Exchange: exchange.Binance,
		Status:   resp.Status,
	}

	var payload apiError
	if err := exchange.DecodeJSON(resp.Body, &payload); err == nil && payload.Code != nil {
		rej.Code = exchange.Text(payload.Code)
		rej.Message = payload.Msg
	} else {
		rej.Message = strings.TrimSpace(string(resp.Body))
		if len(rej.Message) > 500 {
			rej.Message = rej.Message[:500] + "..."
		}
	}

	switch rej.Code {
	case codeCancelRejected, codeNoSuchOrder:
		rej.Terminal = "already filled or canceled"
	}
	return rej
}
