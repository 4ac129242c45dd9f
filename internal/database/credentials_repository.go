package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"order-desk/internal/credentials"
)

const saltKey = "kdf_salt"

// CredentialRepository is the PostgreSQL credential backend
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a CredentialRepository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Salt returns the stored salt, creating it on first use
func (r *CredentialRepository) Salt(ctx context.Context) ([]byte, error) {
	fresh, err := credentials.NewSalt()
	if err != nil {
		return nil, err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO credential_meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		saltKey, fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}

	var salt []byte
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT value FROM credential_meta WHERE key = $1`, saltKey).Scan(&salt); err != nil {
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}
	return salt, nil
}

// Save upserts a credential, keeping created_at
func (r *CredentialRepository) Save(ctx context.Context, rec credentials.Record) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO credentials (exchange, label, api_key, api_secret, passphrase, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (exchange, label) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			passphrase = EXCLUDED.passphrase,
			updated_at = EXCLUDED.updated_at`,
		rec.Exchange, rec.Label, rec.APIKey, rec.APISecret, rec.Passphrase,
		orNow(rec.CreatedAt), orNow(rec.UpdatedAt))
	return err
}

// Load retrieves one credential
func (r *CredentialRepository) Load(ctx context.Context, exchangeName, label string) (credentials.Record, error) {
	rec, err := scanRecord(r.db.Pool.QueryRow(ctx,
		`SELECT exchange, label, api_key, api_secret, passphrase, created_at, updated_at
		 FROM credentials WHERE exchange = $1 AND label = $2`, exchangeName, label))
	if errors.Is(err, pgx.ErrNoRows) {
		return credentials.Record{}, credentials.ErrNotFound
	}
	return rec, err
}

// List retrieves all credentials ordered by exchange and label
func (r *CredentialRepository) List(ctx context.Context) ([]credentials.Record, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT exchange, label, api_key, api_secret, passphrase, created_at, updated_at
		 FROM credentials ORDER BY exchange, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []credentials.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a credential
func (r *CredentialRepository) Delete(ctx context.Context, exchangeName, label string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM credentials WHERE exchange = $1 AND label = $2`, exchangeName, label)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return credentials.ErrNotFound
	}
	return nil
}

// Sample returns the first credential, if any
func (r *CredentialRepository) Sample(ctx context.Context) (credentials.Record, bool, error) {
	rec, err := scanRecord(r.db.Pool.QueryRow(ctx,
		`SELECT exchange, label, api_key, api_secret, passphrase, created_at, updated_at
		 FROM credentials ORDER BY exchange, label LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return credentials.Record{}, false, nil
	}
	if err != nil {
		return credentials.Record{}, false, err
	}
	return rec, true, nil
}

func scanRecord(row pgx.Row) (credentials.Record, error) {
	var rec credentials.Record
	err := row.Scan(&rec.Exchange, &rec.Label, &rec.APIKey, &rec.APISecret, &rec.Passphrase,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
