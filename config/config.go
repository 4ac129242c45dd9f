package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerConfig      ServerConfig      `json:"server" yaml:"server"`
	AuthConfig        AuthConfig        `json:"auth" yaml:"auth"`
	CredentialsConfig CredentialsConfig `json:"credentials" yaml:"credentials"`
	DatabaseConfig    DatabaseConfig    `json:"database" yaml:"database"`
	VaultConfig       VaultConfig       `json:"vault" yaml:"vault"`
	RedisConfig       RedisConfig       `json:"redis" yaml:"redis"`
	LoggingConfig     LoggingConfig     `json:"logging" yaml:"logging"`
	TelemetryConfig   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	ExchangeConfig    ExchangeConfig    `json:"exchanges" yaml:"exchanges"`
	OrdersConfig      OrdersConfig      `json:"orders" yaml:"orders"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port" yaml:"port"`
	Host            string `json:"host" yaml:"host"`
	BasePath        string `json:"base_path" yaml:"base_path"`             // e.g. /order_status behind a reverse proxy
	AllowedOrigins  string `json:"allowed_origins" yaml:"allowed_origins"` // comma separated, "*" for any
	ProductionMode  bool   `json:"production_mode" yaml:"production_mode"`
	ReadTimeout     int    `json:"read_timeout" yaml:"read_timeout"`         // Seconds
	WriteTimeout    int    `json:"write_timeout" yaml:"write_timeout"`       // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout" yaml:"shutdown_timeout"` // Seconds
}

// AuthConfig holds operator session configuration
type AuthConfig struct {
	JWTSecret    string        `json:"jwt_secret" yaml:"jwt_secret"`
	SessionTTL   time.Duration `json:"session_ttl" yaml:"session_ttl"`
	CookieName   string        `json:"cookie_name" yaml:"cookie_name"`
	CookieSecure bool          `json:"cookie_secure" yaml:"cookie_secure"`
}

// CredentialsConfig selects where sealed exchange credentials live
type CredentialsConfig struct {
	Backend       string `json:"backend" yaml:"backend"` // memory, postgres or vault
	KDFIterations int    `json:"kdf_iterations" yaml:"kdf_iterations"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	User           string `json:"user" yaml:"user"`
	Password       string `json:"password" yaml:"password"`
	Database       string `json:"database" yaml:"database"`
	SSLMode        string `json:"ssl_mode" yaml:"ssl_mode"`
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"` // empty uses the embedded set
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Address    string `json:"address" yaml:"address"`
	Token      string `json:"token" yaml:"token"`
	MountPath  string `json:"mount_path" yaml:"mount_path"`   // KV secrets engine mount path
	SecretPath string `json:"secret_path" yaml:"secret_path"` // Path prefix for credentials
	TLSEnabled bool   `json:"tls_enabled" yaml:"tls_enabled"`
	CACert     string `json:"ca_cert" yaml:"ca_cert"`
}

// RedisConfig holds Redis configuration for the session registry
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`               // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output" yaml:"output"`             // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format" yaml:"json_format"`   // Output as JSON
	IncludeFile bool   `json:"include_file" yaml:"include_file"` // Include file and line number
	OrderJSON   bool   `json:"order_json" yaml:"order_json"`     // Log full query responses at debug level
}

// TelemetryConfig holds OTLP metrics export configuration
type TelemetryConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	Endpoint       string        `json:"endpoint" yaml:"endpoint"`
	Insecure       bool          `json:"insecure" yaml:"insecure"`
	MetricInterval time.Duration `json:"metric_interval" yaml:"metric_interval"`
	Environment    string        `json:"environment" yaml:"environment"`
}

// ExchangeConfig holds the exchange hosts and per-exchange defaults
type ExchangeConfig struct {
	Binance BinanceConfig `json:"binance" yaml:"binance"`
	OKX     OKXConfig     `json:"okx" yaml:"okx"`
	Gate    GateConfig    `json:"gate" yaml:"gate"`
}

type BinanceConfig struct {
	PAPIURL    string `json:"papi_url" yaml:"papi_url"`
	FAPIURL    string `json:"fapi_url" yaml:"fapi_url"`
	SpotURL    string `json:"spot_url" yaml:"spot_url"`
	RecvWindow int    `json:"recv_window" yaml:"recv_window"` // Milliseconds
}

type OKXConfig struct {
	BaseURL          string `json:"base_url" yaml:"base_url"`
	SimulatedTrading bool   `json:"simulated_trading" yaml:"simulated_trading"`
}

type GateConfig struct {
	BaseURL       string `json:"base_url" yaml:"base_url"`
	SpotAccount   string `json:"spot_account" yaml:"spot_account"`
	FuturesSettle string `json:"futures_settle" yaml:"futures_settle"`
}

// OrdersConfig bounds the query fan-out and cancel batches
type OrdersConfig struct {
	AdapterTimeout      time.Duration `json:"adapter_timeout" yaml:"adapter_timeout"`
	CancelTimeout       time.Duration `json:"cancel_timeout" yaml:"cancel_timeout"`
	CancelConcurrency   int           `json:"cancel_concurrency" yaml:"cancel_concurrency"`
	CancelRatePerSecond float64       `json:"cancel_rate_per_second" yaml:"cancel_rate_per_second"`
	MaxRetries          int           `json:"max_retries" yaml:"max_retries"`
	MaxPages            int           `json:"max_pages" yaml:"max_pages"`
}

// Load reads the optional config file and applies environment overrides.
func Load() (*Config, error) {
	path := getEnvOrDefault("CONFIG_FILE", "")
	if path == "" {
		path = firstExisting("config.json", "config.yaml", "config.yml")
	}

	cfg := &Config{}
	if path != "" {
		loaded, err := loadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Environment variables take precedence over the file
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.CredentialsConfig.Backend {
	case "memory", "postgres", "vault":
	default:
		return fmt.Errorf("unknown credentials backend %q", c.CredentialsConfig.Backend)
	}
	if c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.OrdersConfig.CancelConcurrency < 1 {
		return fmt.Errorf("cancel concurrency must be at least 1")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", orInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", orString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.BasePath = strings.TrimRight(getEnvOrDefault("APP_BASE_PATH", cfg.ServerConfig.BasePath), "/")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", orString(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ProductionMode = getEnvBoolOrDefault("GIN_RELEASE_MODE", cfg.ServerConfig.ProductionMode)
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", orInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", orInt(cfg.ServerConfig.WriteTimeout, 60))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", orInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Auth config
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.SessionTTL = getEnvDurationOrDefault("AUTH_SESSION_TTL", orDuration(cfg.AuthConfig.SessionTTL, 12*time.Hour))
	cfg.AuthConfig.CookieName = getEnvOrDefault("AUTH_COOKIE_NAME", orString(cfg.AuthConfig.CookieName, "order_desk_session"))
	cfg.AuthConfig.CookieSecure = getEnvBoolOrDefault("AUTH_COOKIE_SECURE", cfg.AuthConfig.CookieSecure)

	// Credentials config
	cfg.CredentialsConfig.Backend = strings.ToLower(getEnvOrDefault("CREDENTIALS_BACKEND", orString(cfg.CredentialsConfig.Backend, "memory")))
	cfg.CredentialsConfig.KDFIterations = getEnvIntOrDefault("CREDENTIALS_KDF_ITERATIONS", orInt(cfg.CredentialsConfig.KDFIterations, 200000))

	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", orString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", orInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", orString(cfg.DatabaseConfig.User, "order_desk"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", orString(cfg.DatabaseConfig.Database, "order_desk"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", orString(cfg.DatabaseConfig.SSLMode, "disable"))
	cfg.DatabaseConfig.MigrationsPath = getEnvOrDefault("DB_MIGRATIONS_PATH", cfg.DatabaseConfig.MigrationsPath)

	// Vault config
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", orString(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", orString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", orString(cfg.VaultConfig.SecretPath, "order-desk/credentials"))
	cfg.VaultConfig.TLSEnabled = getEnvBoolOrDefault("VAULT_TLS_ENABLED", cfg.VaultConfig.TLSEnabled)
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CACERT", cfg.VaultConfig.CACert)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", orString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", orInt(cfg.RedisConfig.PoolSize, 10))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", orString(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", orString(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", true)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)
	cfg.LoggingConfig.OrderJSON = getEnvBoolOrDefault("LOG_ORDER_JSON", cfg.LoggingConfig.OrderJSON)

	// Telemetry config
	cfg.TelemetryConfig.Enabled = getEnvBoolOrDefault("OTEL_ENABLED", cfg.TelemetryConfig.Enabled)
	cfg.TelemetryConfig.Endpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", orString(cfg.TelemetryConfig.Endpoint, "localhost:4318"))
	cfg.TelemetryConfig.Insecure = getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", cfg.TelemetryConfig.Insecure)
	cfg.TelemetryConfig.MetricInterval = getEnvDurationOrDefault("OTEL_METRIC_INTERVAL", orDuration(cfg.TelemetryConfig.MetricInterval, 30*time.Second))
	cfg.TelemetryConfig.Environment = getEnvOrDefault("OTEL_RESOURCE_ENVIRONMENT", orString(cfg.TelemetryConfig.Environment, "development"))

	// Exchange hosts
	b := &cfg.ExchangeConfig.Binance
	b.PAPIURL = getEnvOrDefault("BINANCE_PAPI_URL", orString(b.PAPIURL, "https://papi.binance.com"))
	b.FAPIURL = getEnvOrDefault("BINANCE_FAPI_URL", orString(b.FAPIURL, "https://fapi.binance.com"))
	b.SpotURL = getEnvOrDefault("BINANCE_SPOT_URL", orString(b.SpotURL, "https://api.binance.com"))
	b.RecvWindow = getEnvIntOrDefault("BINANCE_RECV_WINDOW", orInt(b.RecvWindow, 5000))

	o := &cfg.ExchangeConfig.OKX
	o.BaseURL = getEnvOrDefault("OKX_BASE_URL", orString(o.BaseURL, "https://www.okx.com"))
	o.SimulatedTrading = getEnvOrDefault("OKX_SIMULATED_TRADING", boolFlag(o.SimulatedTrading)) == "1"

	g := &cfg.ExchangeConfig.Gate
	g.BaseURL = getEnvOrDefault("GATE_BASE_URL", orString(g.BaseURL, "https://api.gateio.ws"))
	g.SpotAccount = getEnvOrDefault("GATE_SPOT_ACCOUNT", orString(g.SpotAccount, "unified"))
	g.FuturesSettle = strings.ToLower(getEnvOrDefault("GATE_FUTURES_SETTLE", orString(g.FuturesSettle, "usdt")))

	// Orders config
	oc := &cfg.OrdersConfig
	oc.AdapterTimeout = getEnvDurationOrDefault("ORDERS_ADAPTER_TIMEOUT", orDuration(oc.AdapterTimeout, 10*time.Second))
	oc.CancelTimeout = getEnvDurationOrDefault("ORDERS_CANCEL_TIMEOUT", orDuration(oc.CancelTimeout, 10*time.Second))
	oc.CancelConcurrency = getEnvIntOrDefault("ORDERS_CANCEL_CONCURRENCY", orInt(oc.CancelConcurrency, 2))
	oc.CancelRatePerSecond = getEnvFloatOrDefault("ORDERS_CANCEL_RATE", orFloat(oc.CancelRatePerSecond, 5))
	oc.MaxRetries = getEnvIntOrDefault("ORDERS_MAX_RETRIES", orInt(oc.MaxRetries, 2))
	oc.MaxPages = getEnvIntOrDefault("ORDERS_MAX_PAGES", orInt(oc.MaxPages, 20))
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, &config)
	default:
		err = json.Unmarshal(file, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", filename, err)
	}

	return &config, nil
}

func firstExisting(names ...string) string {
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v == 0 {
		return fallback
	}
	return v
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
