package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachableRedis returns a client pointed at a port nothing listens on,
// with timeouts short enough to keep tests fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
		MaxRetries:   -1,
	})
	t.Cleanup(func() { client.Close() })

	return client
}

func TestNewLimiter_Validation(t *testing.T) {
	redisClient := unreachableRedis(t)

	tests := []struct {
		name        string
		redis       *redis.Client
		config      Config
		expectError bool
	}{
		{
			name:   "valid config",
			redis:  redisClient,
			config: Config{Limit: 50, Window: 6 * time.Hour},
		},
		{
			name:        "nil redis",
			redis:       nil,
			config:      Config{Limit: 50, Window: 6 * time.Hour},
			expectError: true,
		},
		{
			name:        "zero limit",
			redis:       redisClient,
			config:      Config{Limit: 0, Window: 6 * time.Hour},
			expectError: true,
		},
		{
			name:        "negative window",
			redis:       redisClient,
			config:      Config{Limit: 50, Window: -time.Second},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLimiter(tt.redis, tt.config)
			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestAllow_PrivilegedBypass(t *testing.T) {
	limiter, err := NewLimiter(unreachableRedis(t), Config{Limit: 1, Window: time.Hour})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	// A privileged caller is never denied regardless of volume, and the
	// decision must not touch the store (the store here is unreachable,
	// so any access would fail open and flip Bypassed to false).
	for i := 0; i < 10; i++ {
		d := limiter.Allow(context.Background(), "admin-1", "search", true)
		if !d.Allowed {
			t.Fatalf("call %d: privileged user denied", i+1)
		}
		if !d.Bypassed {
			t.Fatalf("call %d: expected bypass, got counter-based decision", i+1)
		}
	}
}

func TestAllow_FailOpenOnStoreError(t *testing.T) {
	limiter, err := NewLimiter(unreachableRedis(t), Config{Limit: 3, Window: time.Hour})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	d := limiter.Allow(context.Background(), "user-1", "search", false)
	if !d.Allowed {
		t.Error("Expected fail-open Allow when store is unreachable")
	}
	if d.Bypassed {
		t.Error("Fail-open decision must not report a privileged bypass")
	}
}

func TestStatus_StoreErrorPropagates(t *testing.T) {
	limiter, err := NewLimiter(unreachableRedis(t), Config{Limit: 3, Window: time.Hour})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	if _, err := limiter.Status(context.Background(), "user-1", "search"); err == nil {
		t.Error("Expected error from Status when store is unreachable")
	}
}

func TestCounterKey(t *testing.T) {
	got := counterKey("42", "search")
	want := "rate_limit:user:42:search"
	if got != want {
		t.Errorf("counterKey() = %q, want %q", got, want)
	}
}

func TestLimiterAccessors(t *testing.T) {
	limiter, err := NewLimiter(unreachableRedis(t), Config{Limit: 7, Window: 2 * time.Hour})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	if limiter.Limit() != 7 {
		t.Errorf("Limit() = %d, want 7", limiter.Limit())
	}
	if limiter.Window() != 2*time.Hour {
		t.Errorf("Window() = %s, want 2h", limiter.Window())
	}
}
