package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-desk/config"
)

func TestNewCacheServiceDisabled(t *testing.T) {
	if _, err := NewCacheService(context.Background(), config.RedisConfig{Enabled: false}); err == nil {
		t.Error("Expected error when redis is disabled")
	}
}

func TestDegradedModeFailsFast(t *testing.T) {
	cs, err := NewCacheService(context.Background(), config.RedisConfig{Enabled: true, Address: "127.0.0.1:1", PoolSize: 1})
	if err != nil {
		t.Fatalf("Expected degraded service, got error %v", err)
	}
	defer cs.Close()

	if cs.IsHealthy() {
		t.Fatal("Expected service to start unhealthy")
	}

	start := time.Now()
	if _, err := cs.Exists(context.Background(), SessionKey("abc")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if err := cs.Set(context.Background(), "k", "v", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Expected calls to fail fast while the breaker is open")
	}

	stats := cs.GetStats()
	if stats.Healthy || stats.Address != "127.0.0.1:1" {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSessionKey(t *testing.T) {
	if got := SessionKey("s1"); got != "order-desk:session:s1" {
		t.Errorf("Expected order-desk:session:s1, got %s", got)
	}
}
