package gate

import (
	"strings"

	"order-desk/internal/exchange"
)

var terminalLabels = map[string]bool{
	"ORDER_NOT_FOUND": true,
	"ORDER_CLOSED":    true,
	"ORDER_FINISHED":  true,
	"ORDER_CANCELLED": true,
}

type apiError struct {
	Label   string `json:"label"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func parseError(resp *exchange.Response) error {
	rej := &exchange.ExchangeRejection{Exchange: exchange.Gate, Status: resp.Status}

	var payload apiError
	if err := exchange.DecodeJSON(resp.Body, &payload); err == nil && payload.Label != "" {
		rej.Code = payload.Label
		rej.Message = payload.Message
		if rej.Message == "" {
			rej.Message = payload.Detail
		}
	} else {
		rej.Message = strings.TrimSpace(string(resp.Body))
		if len(rej.Message) > 500 {
			rej.Message = rej.Message[:500] + "..."
		}
	}

	if terminalLabels[rej.Code] {
		rej.Terminal = "already filled or canceled"
	}
	return rej
}
