// Package vault stores sealed exchange credentials in a HashiCorp Vault KV v2 engine.
package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"order-desk/config"
	"order-desk/internal/credentials"
)

const metaName = "_meta"

// CredentialBackend keeps one KV v2 secret per exchange and label
type CredentialBackend struct {
	client *api.Client
	config config.VaultConfig
}

// NewCredentialBackend creates a Vault-backed credential store
func NewCredentialBackend(cfg config.VaultConfig) (*CredentialBackend, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	cfg.MountPath = strings.Trim(cfg.MountPath, "/")
	cfg.SecretPath = strings.Trim(cfg.SecretPath, "/")
	return &CredentialBackend{client: client, config: cfg}, nil
}

// Salt returns the key derivation salt, writing a new one on first use
func (b *CredentialBackend) Salt(ctx context.Context) ([]byte, error) {
	data, err := b.read(ctx, b.dataPath(metaName))
	if err != nil {
		return nil, err
	}
	if encoded := getString(data, "salt"); encoded != "" {
		return base64.StdEncoding.DecodeString(encoded)
	}

	salt, err := credentials.NewSalt()
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{"salt": base64.StdEncoding.EncodeToString(salt)}
	if err := b.write(ctx, b.dataPath(metaName), payload); err != nil {
		return nil, err
	}
	return salt, nil
}

// Save upserts a credential, keeping created_at from the existing version
func (b *CredentialBackend) Save(ctx context.Context, rec credentials.Record) error {
	if existing, err := b.Load(ctx, rec.Exchange, rec.Label); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if !credentials.IsNotFound(err) {
		return err
	}

	payload := map[string]interface{}{
		"exchange":   rec.Exchange,
		"label":      rec.Label,
		"api_key":    rec.APIKey,
		"api_secret": rec.APISecret,
		"passphrase": rec.Passphrase,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	return b.write(ctx, b.dataPath(rec.Exchange+"/"+rec.Label), payload)
}

// Load reads one credential
func (b *CredentialBackend) Load(ctx context.Context, exchangeName, label string) (credentials.Record, error) {
	data, err := b.read(ctx, b.dataPath(exchangeName+"/"+label))
	if err != nil {
		return credentials.Record{}, err
	}
	if data == nil {
		return credentials.Record{}, credentials.ErrNotFound
	}
	return recordFromData(exchangeName, label, data), nil
}

// List walks <secret_path>/<exchange>/<label>, sorted by exchange then label
func (b *CredentialBackend) List(ctx context.Context) ([]credentials.Record, error) {
	exchanges, err := b.list(ctx, b.metadataPath(""))
	if err != nil {
		return nil, err
	}

	var out []credentials.Record
	for _, ex := range exchanges {
		if !strings.HasSuffix(ex, "/") {
			continue
		}
		ex = strings.TrimSuffix(ex, "/")
		labels, err := b.list(ctx, b.metadataPath(ex))
		if err != nil {
			return nil, err
		}
		for _, label := range labels {
			if strings.HasSuffix(label, "/") {
				continue
			}
			rec, err := b.Load(ctx, ex, label)
			if credentials.IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Exchange != out[j].Exchange {
			return out[i].Exchange < out[j].Exchange
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// Delete removes every version of a credential
func (b *CredentialBackend) Delete(ctx context.Context, exchangeName, label string) error {
	if _, err := b.Load(ctx, exchangeName, label); err != nil {
		return err
	}
	if _, err := b.client.Logical().DeleteWithContext(ctx, b.metadataPath(exchangeName+"/"+label)); err != nil {
		return fmt.Errorf("failed to delete credential from vault: %w", err)
	}
	return nil
}

// Sample returns the first listed credential, if any
func (b *CredentialBackend) Sample(ctx context.Context) (credentials.Record, bool, error) {
	list, err := b.List(ctx)
	if err != nil || len(list) == 0 {
		return credentials.Record{}, false, err
	}
	return list[0], true, nil
}

// Health checks the Vault connection
func (b *CredentialBackend) Health(ctx context.Context) error {
	health, err := b.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (b *CredentialBackend) read(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (b *CredentialBackend) write(ctx context.Context, path string, data map[string]interface{}) error {
	if _, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{"data": data}); err != nil {
		return fmt.Errorf("failed to write to vault: %w", err)
	}
	return nil
}

func (b *CredentialBackend) list(ctx context.Context, path string) ([]string, error) {
	secret, err := b.client.Logical().ListWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list vault keys: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}

func (b *CredentialBackend) dataPath(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", b.config.MountPath, b.config.SecretPath, name)
}

func (b *CredentialBackend) metadataPath(name string) string {
	return strings.TrimSuffix(fmt.Sprintf("%s/metadata/%s/%s", b.config.MountPath, b.config.SecretPath, name), "/")
}

func recordFromData(exchangeName, label string, data map[string]interface{}) credentials.Record {
	return credentials.Record{
		Exchange:   exchangeName,
		Label:      label,
		APIKey:     getString(data, "api_key"),
		APISecret:  getString(data, "api_secret"),
		Passphrase: getString(data, "passphrase"),
		CreatedAt:  getTime(data, "created_at"),
		UpdatedAt:  getTime(data, "updated_at"),
	}
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getTime(data map[string]interface{}, key string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, getString(data, key))
	return t
}
