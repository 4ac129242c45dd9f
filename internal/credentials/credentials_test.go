package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-desk/internal/exchange"
)

func newTestService(t *testing.T) (*Service, *Cipher) {
	t.Helper()
	svc := NewService(NewMemoryBackend(), 1000)
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	c, err := svc.DeriveCipher(context.Background(), "correct horse")
	if err != nil {
		t.Fatalf("DeriveCipher failed: %v", err)
	}
	return svc, c
}

func TestCipherRoundTrip(t *testing.T) {
	salt := []byte("0123456789abcdef")
	c, err := NewCipher("master", salt, 1000)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	sealed, err := c.Seal("my-secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if sealed == "my-secret" {
		t.Error("Expected sealed value to differ from plaintext")
	}
	again, _ := c.Seal("my-secret")
	if again == sealed {
		t.Error("Expected a fresh nonce per seal")
	}

	plain, err := c.Open(sealed)
	if err != nil || plain != "my-secret" {
		t.Errorf("Expected my-secret, got %q (%v)", plain, err)
	}

	other, _ := NewCipher("wrong", salt, 1000)
	if _, err := other.Open(sealed); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt with wrong key, got %v", err)
	}
	if _, err := c.Open("not base64!"); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for garbage, got %v", err)
	}
}

func TestNewCipherRequiresKeyAndSalt(t *testing.T) {
	if _, err := NewCipher("", []byte("salt"), 1); err == nil {
		t.Error("Expected error for empty master key")
	}
	if _, err := NewCipher("key", nil, 1); err == nil {
		t.Error("Expected error for empty salt")
	}
}

func TestUpsertValidation(t *testing.T) {
	svc, c := newTestService(t)

	tests := []struct {
		name  string
		input Input
	}{
		{"unknown exchange", Input{Exchange: "kraken", Label: "main", APIKey: "k", APISecret: "s"}},
		{"blank label", Input{Exchange: "binance", Label: "  ", APIKey: "k", APISecret: "s"}},
		{"missing secret", Input{Exchange: "binance", Label: "main", APIKey: "k"}},
		{"okx without passphrase", Input{Exchange: "okx", Label: "main", APIKey: "k", APISecret: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upsert(context.Background(), c, tt.input); !exchange.IsConfiguration(err) {
				t.Errorf("Expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestUpsertListResolveDelete(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Upsert(ctx, c, Input{Exchange: " OKX ", Label: " main ", APIKey: "abcdefghijkl", APISecret: "sec", Passphrase: "pp"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if summary.Exchange != "okx" || summary.Label != "main" {
		t.Errorf("Expected normalized okx/main, got %s/%s", summary.Exchange, summary.Label)
	}
	if summary.APIKeyMasked != "abcd...ijkl" || !summary.HasPassphrase {
		t.Errorf("Unexpected summary %+v", summary)
	}

	svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	updated, err := svc.Upsert(ctx, c, Input{Exchange: "okx", Label: "main", APIKey: "short", APISecret: "sec2", Passphrase: "pp"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !updated.CreatedAt.Equal(summary.CreatedAt) || updated.UpdatedAt.Equal(summary.UpdatedAt) {
		t.Errorf("Expected created_at kept and updated_at bumped, got %+v", updated)
	}
	if updated.APIKeyMasked != "*****" {
		t.Errorf("Expected fully masked short key, got %s", updated.APIKeyMasked)
	}

	svc.Upsert(ctx, c, Input{Exchange: "binance", Label: "b", APIKey: "k", APISecret: "s"})
	list, _ := svc.List(ctx, c)
	if len(list) != 2 || list[0].Exchange != "binance" || list[1].Exchange != "okx" {
		t.Errorf("Expected binance then okx, got %+v", list)
	}

	cred, err := SessionSource{Service: svc, Cipher: c}.Credential(ctx, "okx", "main")
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if cred.APIKey != "short" || cred.APISecret != "sec2" || cred.Passphrase != "pp" {
		t.Errorf("Unexpected decrypted credential %+v", cred)
	}

	if err := svc.Delete(ctx, "okx", "main"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Resolve(ctx, c, "okx", "main"); !IsNotFound(err) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, "okx", "main"); !IsNotFound(err) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestVerifyMasterKey(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	wrong, _ := svc.DeriveCipher(ctx, "wrong key")
	if err := svc.VerifyMasterKey(ctx, wrong); err != nil {
		t.Errorf("Expected empty store to accept any key, got %v", err)
	}

	svc.Upsert(ctx, c, Input{Exchange: "gate", Label: "main", APIKey: "key", APISecret: "secret"})
	if err := svc.VerifyMasterKey(ctx, c); err != nil {
		t.Errorf("Expected correct key to verify, got %v", err)
	}
	if err := svc.VerifyMasterKey(ctx, wrong); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for wrong key, got %v", err)
	}

	list, _ := svc.List(ctx, wrong)
	if list[0].APIKeyMasked != "encrypted" {
		t.Errorf("Expected undecryptable key to show as encrypted, got %s", list[0].APIKeyMasked)
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"12345678":     "********",
		"123456789":    "1234...6789",
		"ABCDEFGHWXYZ": "ABCD...WXYZ",
	}
	for in, want := range tests {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, expected %q", in, got, want)
		}
	}
}
