package database

import (
	"io/fs"
	"strings"
	"testing"

	"order-desk/internal/credentials"
	"order-desk/internal/database/migrations"
)

var _ credentials.Backend = (*CredentialRepository)(nil)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "desk", Password: "p@ss word", Database: "orders", SSLMode: "disable"}
	want := "postgres://desk:p%40ss%20word@db:5433/orders?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("Expected up and down migrations, got %v", names)
	}

	up, err := fs.ReadFile(migrations.Files, "000001_credentials.up.sql")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	for _, table := range []string{"credentials", "credential_meta"} {
		if !strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("Expected %s table in up migration", table)
		}
	}
}

func TestFileURL(t *testing.T) {
	if got := fileURL("/srv/migrations"); got != "file:///srv/migrations" {
		t.Errorf("Expected file:///srv/migrations, got %s", got)
	}
}
