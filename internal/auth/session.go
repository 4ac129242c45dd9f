package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-desk/internal/cache"
	"order-desk/internal/credentials"
	"order-desk/internal/logging"
)

// SessionRegistry tracks which session ids are live
type SessionRegistry interface {
	Register(ctx context.Context, sessionID string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
}

// MemoryRegistry is the registry used when Redis is disabled
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

// NewMemoryRegistry creates an empty MemoryRegistry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRegistry) Register(ctx context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = r.now().Add(ttl)
	return nil
}

func (r *MemoryRegistry) Exists(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expires, ok := r.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if !r.now().Before(expires) {
		delete(r.sessions, sessionID)
		return false, nil
	}
	return true, nil
}

func (r *MemoryRegistry) Revoke(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

// RedisRegistry stores session ids in Redis so revocation survives restarts
type RedisRegistry struct {
	cache *cache.CacheService
}

// NewRedisRegistry creates a RedisRegistry
func NewRedisRegistry(cs *cache.CacheService) *RedisRegistry {
	return &RedisRegistry{cache: cs}
}

func (r *RedisRegistry) Register(ctx context.Context, sessionID string, ttl time.Duration) error {
	return r.cache.Set(ctx, cache.SessionKey(sessionID), time.Now().UTC().Format(time.RFC3339), ttl)
}

func (r *RedisRegistry) Exists(ctx context.Context, sessionID string) (bool, error) {
	return r.cache.Exists(ctx, cache.SessionKey(sessionID))
}

func (r *RedisRegistry) Revoke(ctx context.Context, sessionID string) error {
	return r.cache.Delete(ctx, cache.SessionKey(sessionID))
}

type keyringEntry struct {
	cipher    *credentials.Cipher
	expiresAt time.Time
}

// SessionManager logs the operator in with the master key. The derived
// cipher never leaves the process; the token only carries the session id.
type SessionManager struct {
	credentials *credentials.Service
	jwt         *JWTManager
	registry    SessionRegistry

	mu      sync.Mutex
	keyring map[string]keyringEntry
	now     func() time.Time
}

// NewSessionManager creates a SessionManager
func NewSessionManager(creds *credentials.Service, jwtManager *JWTManager, registry SessionRegistry) *SessionManager {
	return &SessionManager{
		credentials: creds,
		jwt:         jwtManager,
		registry:    registry,
		keyring:     make(map[string]keyringEntry),
		now:         time.Now,
	}
}

// Login verifies masterKey and opens a session
func (m *SessionManager) Login(ctx context.Context, masterKey string) (LoginResult, error) {
	if masterKey == "" {
		return LoginResult{}, ErrInvalidMasterKey
	}

	c, err := m.credentials.DeriveCipher(ctx, masterKey)
	if err != nil {
		return LoginResult{}, err
	}
	if err := m.credentials.VerifyMasterKey(ctx, c); err != nil {
		if errors.Is(err, credentials.ErrDecrypt) {
			return LoginResult{}, ErrInvalidMasterKey
		}
		return LoginResult{}, err
	}

	sessionID := uuid.NewString()
	now := m.now()
	token, expiresAt, err := m.jwt.Generate(sessionID, now)
	if err != nil {
		return LoginResult{}, err
	}
	if err := m.registry.Register(ctx, sessionID, m.jwt.TTL()); err != nil {
		return LoginResult{}, fmt.Errorf("failed to register session: %w", err)
	}

	m.mu.Lock()
	for id, entry := range m.keyring {
		if !now.Before(entry.expiresAt) {
			delete(m.keyring, id)
		}
	}
	m.keyring[sessionID] = keyringEntry{cipher: c, expiresAt: expiresAt}
	m.mu.Unlock()

	logging.FromContext(ctx).WithComponent("auth").Info("operator logged in", "session_id", sessionID)
	return LoginResult{OK: true, Token: token, ExpiresIn: int64(m.jwt.TTL().Seconds())}, nil
}

// Authenticate resolves a token to a live session
func (m *SessionManager) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := m.jwt.Validate(token)
	if err != nil {
		return nil, err
	}

	live, err := m.registry.Exists(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !live {
		m.forget(claims.SessionID)
		return nil, ErrSessionRevoked
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.keyring[claims.SessionID]
	if !ok || !m.now().Before(entry.expiresAt) {
		delete(m.keyring, claims.SessionID)
		return nil, ErrSessionRevoked
	}
	return &Session{ID: claims.SessionID, ExpiresAt: entry.expiresAt, Cipher: entry.cipher}, nil
}

// Logout revokes a session
func (m *SessionManager) Logout(ctx context.Context, sessionID string) error {
	m.forget(sessionID)
	if err := m.registry.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	logging.FromContext(ctx).WithComponent("auth").Info("operator logged out", "session_id", sessionID)
	return nil
}

func (m *SessionManager) forget(sessionID string) {
	m.mu.Lock()
	delete(m.keyring, sessionID)
	m.mu.Unlock()
}
