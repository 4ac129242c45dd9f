// Package credentials stores exchange API keys sealed under a key derived
// from the operator's master key, and resolves them for a single request.
package credentials

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no credential exists for an exchange and label
var ErrNotFound = errors.New("credential not found")

// Record is a stored credential. APIKey, APISecret and Passphrase are sealed.
type Record struct {
	Exchange   string
	Label      string
	APIKey     string
	APISecret  string
	Passphrase string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Backend persists sealed credentials and the key derivation salt.
type Backend interface {
	// Salt returns the stored salt, creating it on first use
	Salt(ctx context.Context) ([]byte, error)
	// Save upserts on (exchange, label), keeping the original CreatedAt
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, exchangeName, label string) (Record, error)
	// List returns every record ordered by exchange then label
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, exchangeName, label string) error
	// Sample returns any one record, used to verify a master key
	Sample(ctx context.Context) (Record, bool, error)
}
