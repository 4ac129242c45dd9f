package credentials

import (
	"context"

	"order-desk/internal/exchange"
)

// SessionSource resolves credentials with the cipher of a logged-in session
type SessionSource struct {
	Service *Service
	Cipher  *Cipher
}

// Credential implements the aggregator's credential lookup
func (s SessionSource) Credential(ctx context.Context, exchangeName, label string) (exchange.Credential, error) {
	return s.Service.Resolve(ctx, s.Cipher, exchangeName, label)
}
