package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"order-desk/internal/credentials"
)

func newTestManager(t *testing.T) (*SessionManager, *credentials.Service) {
	t.Helper()
	svc := credentials.NewService(credentials.NewMemoryBackend(), 1000)
	m := NewSessionManager(svc, NewJWTManager("test-secret", time.Hour), NewMemoryRegistry())
	return m, svc
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	token, expiresAt, err := m.Generate("sid-1", time.Now())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if time.Until(expiresAt) > time.Minute {
		t.Errorf("Unexpected expiry %v", expiresAt)
	}

	claims, err := m.Validate(token)
	if err != nil || claims.SessionID != "sid-1" {
		t.Errorf("Expected sid-1, got %+v (%v)", claims, err)
	}

	if _, err := NewJWTManager("other", time.Minute).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}

	old, _, _ := m.Generate("sid-2", time.Now().Add(-2*time.Minute))
	if _, err := m.Validate(old); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	result, err := m.Login(ctx, "master")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.OK || result.Token == "" || result.ExpiresIn != 3600 {
		t.Errorf("Unexpected login result %+v", result)
	}

	session, err := m.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if session.Cipher == nil {
		t.Error("Expected session to carry the cipher")
	}

	if err := m.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := m.Authenticate(ctx, result.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("Expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestLoginSweepsExpiredKeyringEntries(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }

	if _, err := m.Login(ctx, "master"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := m.Login(ctx, "master"); err != nil {
		t.Fatalf("Second login failed: %v", err)
	}

	m.mu.Lock()
	remaining := len(m.keyring)
	m.mu.Unlock()
	if remaining != 1 {
		t.Errorf("Expected 1 keyring entry after sweep, got %d", remaining)
	}
}

func TestLoginRejectsWrongMasterKey(t *testing.T) {
	m, svc := newTestManager(t)
	ctx := context.Background()

	c, _ := svc.DeriveCipher(ctx, "right")
	if _, err := svc.Upsert(ctx, c, credentials.Input{Exchange: "binance", Label: "main", APIKey: "k", APISecret: "s"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if _, err := m.Login(ctx, "wrong"); !errors.Is(err, ErrInvalidMasterKey) {
		t.Errorf("Expected ErrInvalidMasterKey, got %v", err)
	}
	if _, err := m.Login(ctx, ""); !errors.Is(err, ErrInvalidMasterKey) {
		t.Errorf("Expected ErrInvalidMasterKey for empty key, got %v", err)
	}

	result, err := m.Login(ctx, "right")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	session, _ := m.Authenticate(ctx, result.Token)
	cred, err := svc.Resolve(ctx, session.Cipher, "binance", "main")
	if err != nil || cred.APIKey != "k" {
		t.Errorf("Expected session cipher to open credentials, got %+v (%v)", cred, err)
	}
}

func TestMemoryRegistryExpiry(t *testing.T) {
	r := NewMemoryRegistry()
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }

	r.Register(context.Background(), "a", time.Minute)
	if ok, _ := r.Exists(context.Background(), "a"); !ok {
		t.Error("Expected session to exist")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := r.Exists(context.Background(), "a"); ok {
		t.Error("Expected session to expire")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := newTestManager(t)
	result, _ := m.Login(context.Background(), "master")

	router := gin.New()
	router.GET("/private", Middleware(m, "order_desk_session"), func(c *gin.Context) {
		if GetSession(c) == nil {
			t.Error("Expected session in context")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+result.Token) }, http.StatusOK},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "order_desk_session", Value: result.Token})
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusUnauthorized && !strings.Contains(w.Body.String(), "AUTHENTICATION_REQUIRED") {
				t.Errorf("Expected AUTHENTICATION_REQUIRED body, got %s", w.Body.String())
			}
		})
	}
}
