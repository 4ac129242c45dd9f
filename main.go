package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"order-desk/config"
	"order-desk/internal/api"
	"order-desk/internal/auth"
	"order-desk/internal/cache"
	"order-desk/internal/credentials"
	"order-desk/internal/database"
	"order-desk/internal/exchange"
	"order-desk/internal/exchange/binance"
	"order-desk/internal/exchange/gate"
	"order-desk/internal/exchange/okx"
	"order-desk/internal/logging"
	"order-desk/internal/orders"
	"order-desk/internal/telemetry"
	"order-desk/internal/vault"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	ctx := context.Background()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TelemetryConfig.Enabled,
		OTLPEndpoint:   cfg.TelemetryConfig.Endpoint,
		OTLPInsecure:   cfg.TelemetryConfig.Insecure,
		MetricInterval: cfg.TelemetryConfig.MetricInterval,
		Environment:    cfg.TelemetryConfig.Environment,
	})
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", "error", err)
	}
	metrics := orders.NewMetrics(provider.Meter("order-desk"))
	logger.Info("Telemetry initialized", "enabled", provider.Enabled())

	transport := exchange.NewTransport(
		&http.Client{Timeout: exchange.DefaultRequestTimeout},
		exchange.WithMaxRetries(cfg.OrdersConfig.MaxRetries),
	)
	registry := orders.NewRegistry(transport, orders.ExchangeConfig{
		Binance: binance.Endpoints{
			PAPIURL: cfg.ExchangeConfig.Binance.PAPIURL,
			FAPIURL: cfg.ExchangeConfig.Binance.FAPIURL,
			SpotURL: cfg.ExchangeConfig.Binance.SpotURL,
		},
		BinanceRecvWindow: int64(cfg.ExchangeConfig.Binance.RecvWindow),
		OKX: okx.Options{
			BaseURL:   cfg.ExchangeConfig.OKX.BaseURL,
			Simulated: cfg.ExchangeConfig.OKX.SimulatedTrading,
			MaxPages:  cfg.OrdersConfig.MaxPages,
		},
		Gate: gate.Options{
			BaseURL:     cfg.ExchangeConfig.Gate.BaseURL,
			SpotAccount: cfg.ExchangeConfig.Gate.SpotAccount,
			Settle:      cfg.ExchangeConfig.Gate.FuturesSettle,
			MaxPages:    cfg.OrdersConfig.MaxPages,
		},
	})

	healthChecks := map[string]api.HealthCheck{}
	healthStats := map[string]api.HealthStats{}
	backend, closeBackend, err := openCredentialBackend(ctx, cfg, healthChecks)
	if err != nil {
		logger.Fatal("Failed to open credential store", "error", err, "backend", cfg.CredentialsConfig.Backend)
	}
	defer closeBackend()
	creds := credentials.NewService(backend, cfg.CredentialsConfig.KDFIterations)
	logger.Info("Credential store ready", "backend", cfg.CredentialsConfig.Backend)

	var registryBackend auth.SessionRegistry = auth.NewMemoryRegistry()
	if cfg.RedisConfig.Enabled {
		cacheService, err := cache.NewCacheService(ctx, cfg.RedisConfig)
		if err != nil {
			logger.Warn("Redis unavailable, sessions stay in memory", "error", err)
		} else {
			defer cacheService.Close()
			registryBackend = auth.NewRedisRegistry(cacheService)
			healthChecks["redis"] = cacheService.Ping
			healthStats["redis"] = func() interface{} { return cacheService.GetStats() }
			logger.Info("Session registry using Redis", "address", cfg.RedisConfig.Address)
		}
	}
	sessions := auth.NewSessionManager(creds, auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.SessionTTL), registryBackend)

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		BasePath:       cfg.ServerConfig.BasePath,
		AllowedOrigins: splitOrigins(cfg.ServerConfig.AllowedOrigins),
		ProductionMode: cfg.ServerConfig.ProductionMode,
		ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		CookieName:     cfg.AuthConfig.CookieName,
		CookieSecure:   cfg.AuthConfig.CookieSecure,
		LogOrderJSON:   cfg.LoggingConfig.OrderJSON,
	}, api.Dependencies{
		Sessions:       sessions,
		Credentials:    creds,
		Adapters:       registry,
		Binance:        registry,
		AdapterTimeout: cfg.OrdersConfig.AdapterTimeout,
		Cancel: orders.CancellerConfig{
			Timeout:       cfg.OrdersConfig.CancelTimeout,
			Concurrency:   cfg.OrdersConfig.CancelConcurrency,
			RatePerSecond: cfg.OrdersConfig.CancelRatePerSecond,
		},
		Metrics:      metrics,
		HealthChecks: healthChecks,
		HealthStats:  healthStats,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Web server failed", "error", err)
		}
	}()
	logger.Info("Order desk started", "host", cfg.ServerConfig.Host, "port", cfg.ServerConfig.Port, "base_path", cfg.ServerConfig.BasePath)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")

	timeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down web server", "error", err)
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown failed", "error", err)
	}
	logger.Info("Shutdown complete")
}

// openCredentialBackend selects the credential store named in config and
// registers its health check.
func openCredentialBackend(ctx context.Context, cfg *config.Config, checks map[string]api.HealthCheck) (credentials.Backend, func(), error) {
	switch cfg.CredentialsConfig.Backend {
	case "", "memory":
		return credentials.NewMemoryBackend(), func() {}, nil

	case "postgres":
		db, err := database.NewDB(ctx, database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx, cfg.DatabaseConfig.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		checks["postgres"] = db.HealthCheck
		return database.NewCredentialRepository(db), db.Close, nil

	case "vault":
		backend, err := vault.NewCredentialBackend(cfg.VaultConfig)
		if err != nil {
			return nil, nil, err
		}
		checks["vault"] = backend.Health
		return backend, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialsConfig.Backend)
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
