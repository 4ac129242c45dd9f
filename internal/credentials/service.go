package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

// Input is a credential as entered by the operator
type Input struct {
	Exchange   string `json:"exchange"`
	Label      string `json:"label"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"api_passphrase,omitempty"`
}

// Summary is the listing view of a credential; the key is masked and secrets are omitted
type Summary struct {
	Exchange      string    `json:"exchange"`
	Label         string    `json:"label"`
	APIKeyMasked  string    `json:"api_key_masked"`
	HasPassphrase bool      `json:"has_passphrase"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Service manages sealed credentials on top of a Backend
type Service struct {
	backend    Backend
	iterations int
	now        func() time.Time
}

// NewService creates a Service. iterations <= 0 uses DefaultIterations.
func NewService(backend Backend, iterations int) *Service {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Service{backend: backend, iterations: iterations, now: time.Now}
}

// DeriveCipher builds the cipher for masterKey from the backend salt
func (s *Service) DeriveCipher(ctx context.Context, masterKey string) (*Cipher, error) {
	salt, err := s.backend.Salt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}
	return NewCipher(masterKey, salt, s.iterations)
}

// VerifyMasterKey trial-decrypts one stored record. An empty store accepts any key.
func (s *Service) VerifyMasterKey(ctx context.Context, c *Cipher) error {
	rec, ok, err := s.backend.Sample(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential sample: %w", err)
	}
	if !ok {
		return nil
	}
	if _, err := c.Open(rec.APIKey); err != nil {
		return err
	}
	return nil
}

// Upsert validates and seals in, then stores it
func (s *Service) Upsert(ctx context.Context, c *Cipher, in Input) (Summary, error) {
	in.Exchange = strings.ToLower(strings.TrimSpace(in.Exchange))
	in.Label = strings.TrimSpace(in.Label)
	in.APIKey = strings.TrimSpace(in.APIKey)
	in.APISecret = strings.TrimSpace(in.APISecret)
	in.Passphrase = strings.TrimSpace(in.Passphrase)

	switch {
	case !exchange.ValidExchange(in.Exchange):
		return Summary{}, exchange.NewConfigurationError("exchange", "unsupported exchange %q", in.Exchange)
	case in.Label == "":
		return Summary{}, exchange.NewConfigurationError("label", "label is required")
	case in.APIKey == "" || in.APISecret == "":
		return Summary{}, exchange.NewConfigurationError("api_key", "api_key and api_secret are required")
	case in.Exchange == exchange.OKX && in.Passphrase == "":
		return Summary{}, exchange.NewConfigurationError("api_passphrase", "api_passphrase is required for okx")
	}

	rec := Record{Exchange: in.Exchange, Label: in.Label}
	var err error
	if rec.APIKey, err = c.Seal(in.APIKey); err != nil {
		return Summary{}, err
	}
	if rec.APISecret, err = c.Seal(in.APISecret); err != nil {
		return Summary{}, err
	}
	if in.Passphrase != "" {
		if rec.Passphrase, err = c.Seal(in.Passphrase); err != nil {
			return Summary{}, err
		}
	}
	now := s.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	if err := s.backend.Save(ctx, rec); err != nil {
		return Summary{}, fmt.Errorf("failed to save credential: %w", err)
	}
	saved, err := s.backend.Load(ctx, rec.Exchange, rec.Label)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to reload credential: %w", err)
	}

	logging.FromContext(ctx).WithComponent("credentials").Info("credential saved",
		"exchange", rec.Exchange, "label", rec.Label)
	return summarize(c, saved), nil
}

// List returns summaries of every stored credential
func (s *Service) List(ctx context.Context, c *Cipher) ([]Summary, error) {
	records, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	out := make([]Summary, 0, len(records))
	for _, rec := range records {
		out = append(out, summarize(c, rec))
	}
	return out, nil
}

// Delete removes a credential
func (s *Service) Delete(ctx context.Context, exchangeName, label string) error {
	exchangeName = strings.ToLower(strings.TrimSpace(exchangeName))
	label = strings.TrimSpace(label)
	if err := s.backend.Delete(ctx, exchangeName, label); err != nil {
		return err
	}
	logging.FromContext(ctx).WithComponent("credentials").Info("credential deleted",
		"exchange", exchangeName, "label", label)
	return nil
}

// Resolve loads and decrypts the credential for one request
func (s *Service) Resolve(ctx context.Context, c *Cipher, exchangeName, label string) (exchange.Credential, error) {
	rec, err := s.backend.Load(ctx, exchangeName, label)
	if err != nil {
		return exchange.Credential{}, err
	}

	cred := exchange.Credential{
		Exchange:  rec.Exchange,
		Label:     rec.Label,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if cred.APIKey, err = c.Open(rec.APIKey); err != nil {
		return exchange.Credential{}, fmt.Errorf("api_key: %w", err)
	}
	if cred.APISecret, err = c.Open(rec.APISecret); err != nil {
		return exchange.Credential{}, fmt.Errorf("api_secret: %w", err)
	}
	if rec.Passphrase != "" {
		if cred.Passphrase, err = c.Open(rec.Passphrase); err != nil {
			return exchange.Credential{}, fmt.Errorf("api_passphrase: %w", err)
		}
	}
	return cred, nil
}

func summarize(c *Cipher, rec Record) Summary {
	masked := "encrypted"
	if key, err := c.Open(rec.APIKey); err == nil {
		masked = Mask(key)
	}
	return Summary{
		Exchange:      rec.Exchange,
		Label:         rec.Label,
		APIKeyMasked:  masked,
		HasPassphrase: rec.Passphrase != "",
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// Mask shows the first and last four characters of a key
func Mask(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// IsNotFound reports whether err means the credential does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
