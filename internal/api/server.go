// Package api exposes the order desk over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"order-desk/internal/auth"
	"order-desk/internal/credentials"
	"order-desk/internal/exchange"
	"order-desk/internal/exchange/binance"
	"order-desk/internal/logging"
	"order-desk/internal/orders"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// BinanceClients builds signed Binance clients for account mode detection
type BinanceClients interface {
	BinanceClient(cred exchange.Credential) *binance.Client
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// HealthStats returns a dependency's own counters for /api/health
type HealthStats func() interface{}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	BasePath       string
	AllowedOrigins []string
	ProductionMode bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CookieName     string
	CookieSecure   bool
	LogOrderJSON   bool
	RateLimit      int // requests per minute per endpoint
}

// Dependencies are the services the handlers call into
type Dependencies struct {
	Sessions       *auth.SessionManager
	Credentials    *credentials.Service
	Adapters       orders.AdapterFactory
	Binance        BinanceClients
	AdapterTimeout time.Duration
	Cancel         orders.CancellerConfig
	Metrics        *orders.Metrics
	HealthChecks   map[string]HealthCheck
	HealthStats    map[string]HealthStats // keyed like HealthChecks
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	deps        Dependencies
	rateLimiter *RateLimiter
}

// NewServer creates a new API server
func NewServer(config ServerConfig, deps Dependencies) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.CookieName == "" {
		config.CookieName = "order_desk_session"
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 120
	}
	config.BasePath = strings.TrimRight(config.BasePath, "/")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) == 0 || (len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*") {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsConfig.AllowOrigins = config.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", logging.TraceHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", logging.TraceHeader}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		config:      config,
		deps:        deps,
		rateLimiter: NewRateLimiter(config.RateLimit, time.Minute),
	}
	server.setupRoutes()
	return server
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// rateLimitMiddleware limits requests by route
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Too many requests to this endpoint, please slow down",
				"path":    path,
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group(s.config.BasePath + "/api")
	api.GET("/health", s.handleHealth)

	api.POST("/login", s.rateLimitMiddleware(), s.handleLogin)
	api.POST("/logout", s.handleLogout)
	api.GET("/session", s.handleSession)

	private := api.Group("")
	private.Use(auth.Middleware(s.deps.Sessions, s.config.CookieName))
	{
		private.GET("/credentials", s.handleListCredentials)
		private.POST("/credentials", s.handleUpsertCredential)
		private.DELETE("/credentials/:exchange/:label", s.handleDeleteCredential)

		exchangeCalls := private.Group("")
		exchangeCalls.Use(s.rateLimitMiddleware())
		exchangeCalls.POST("/orders/query", s.handleQueryOrders)
		exchangeCalls.POST("/orders/cancel", s.handleCancelOrders)
		exchangeCalls.POST("/orders/lookup", s.handleLookupOrder)
		exchangeCalls.POST("/binance/account_mode", s.handleAccountMode)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logging.WithComponent("http").Info("starting HTTP server", "addr", addr, "base_path", s.config.BasePath)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.WithComponent("http").Info("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleHealth reports process health plus any configured dependency checks
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range s.deps.HealthChecks {
		state := "healthy"
		if err := check(ctx); err != nil {
			state = "unhealthy"
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		if stats, ok := s.deps.HealthStats[name]; ok {
			body[name] = gin.H{"status": state, "stats": stats()}
			continue
		}
		body[name] = state
	}
	c.JSON(status, body)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	body := gin.H{
		"error":   true,
		"message": message,
	}
	if traceID := logging.TraceIDFromContext(c.Request.Context()); traceID != "" {
		body["trace_id"] = traceID
	}
	c.JSON(statusCode, body)
}

// credentialSource binds the session cipher of the current request
func (s *Server) credentialSource(c *gin.Context) credentials.SessionSource {
	src := credentials.SessionSource{Service: s.deps.Credentials}
	if session := auth.GetSession(c); session != nil {
		src.Cipher = session.Cipher
	}
	return src
}
