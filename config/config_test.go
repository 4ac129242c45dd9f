package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerConfig.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.ServerConfig.Port)
	}
	if cfg.CredentialsConfig.Backend != "memory" {
		t.Errorf("Expected memory backend, got %s", cfg.CredentialsConfig.Backend)
	}
	if cfg.CredentialsConfig.KDFIterations != 200000 {
		t.Errorf("Expected 200000 kdf iterations, got %d", cfg.CredentialsConfig.KDFIterations)
	}
	if cfg.ExchangeConfig.Binance.PAPIURL != "https://papi.binance.com" {
		t.Errorf("Unexpected PAPI url %s", cfg.ExchangeConfig.Binance.PAPIURL)
	}
	if cfg.ExchangeConfig.Binance.RecvWindow != 5000 {
		t.Errorf("Expected recvWindow 5000, got %d", cfg.ExchangeConfig.Binance.RecvWindow)
	}
	if cfg.ExchangeConfig.Gate.SpotAccount != "unified" || cfg.ExchangeConfig.Gate.FuturesSettle != "usdt" {
		t.Errorf("Unexpected gate defaults %+v", cfg.ExchangeConfig.Gate)
	}
	if cfg.ExchangeConfig.OKX.SimulatedTrading {
		t.Error("Simulated trading should default to off")
	}
	if cfg.OrdersConfig.AdapterTimeout != 10*time.Second {
		t.Errorf("Expected 10s adapter timeout, got %v", cfg.OrdersConfig.AdapterTimeout)
	}
	if cfg.OrdersConfig.CancelConcurrency != 2 {
		t.Errorf("Expected cancel concurrency 2, got %d", cfg.OrdersConfig.CancelConcurrency)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("OKX_SIMULATED_TRADING", "1")
	t.Setenv("GATE_FUTURES_SETTLE", "BTC")
	t.Setenv("ORDERS_ADAPTER_TIMEOUT", "3s")
	t.Setenv("APP_BASE_PATH", "/order_status/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.ExchangeConfig.OKX.SimulatedTrading {
		t.Error("Expected simulated trading to be enabled")
	}
	if cfg.ExchangeConfig.Gate.FuturesSettle != "btc" {
		t.Errorf("Expected settle to be lowercased, got %s", cfg.ExchangeConfig.Gate.FuturesSettle)
	}
	if cfg.OrdersConfig.AdapterTimeout != 3*time.Second {
		t.Errorf("Expected 3s adapter timeout, got %v", cfg.OrdersConfig.AdapterTimeout)
	}
	if cfg.ServerConfig.BasePath != "/order_status" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.ServerConfig.BasePath)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	content := []byte(`
server:
  port: 9090
exchanges:
  gate:
    spot_account: spot
orders:
  cancel_concurrency: 4
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerConfig.Port != 9090 {
		t.Errorf("Expected port 9090 from file, got %d", cfg.ServerConfig.Port)
	}
	if cfg.ExchangeConfig.Gate.SpotAccount != "spot" {
		t.Errorf("Expected spot account from file, got %s", cfg.ExchangeConfig.Gate.SpotAccount)
	}
	if cfg.OrdersConfig.CancelConcurrency != 4 {
		t.Errorf("Expected cancel concurrency 4, got %d", cfg.OrdersConfig.CancelConcurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.CredentialsConfig.Backend = "sqlite" }, wantErr: true},
		{name: "missing jwt secret", mutate: func(c *Config) { c.AuthConfig.JWTSecret = "" }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.OrdersConfig.CancelConcurrency = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				AuthConfig:        AuthConfig{JWTSecret: "s"},
				CredentialsConfig: CredentialsConfig{Backend: "postgres"},
				OrdersConfig:      OrdersConfig{CancelConcurrency: 1},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
