//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestLimiter_Integration_DeniesOverLimit(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	window := 6 * time.Hour
	limiter, err := NewLimiter(redisClient, Config{Limit: 3, Window: window})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := limiter.Allow(ctx, "user-1", "search", false)
		if !d.Allowed {
			t.Fatalf("call %d: expected Allowed, got denied", i)
		}
	}

	d := limiter.Allow(ctx, "user-1", "search", false)
	if d.Allowed {
		t.Fatal("4th call: expected Denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > window {
		t.Errorf("RetryAfter = %s, want in (0, %s]", d.RetryAfter, window)
	}

	// A different user has an independent counter.
	if d := limiter.Allow(ctx, "user-2", "search", false); !d.Allowed {
		t.Error("different user must not share the counter")
	}
}

func TestLimiter_Integration_WindowExpiryResets(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	limiter, err := NewLimiter(redisClient, Config{Limit: 1, Window: time.Second})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	ctx := context.Background()

	if d := limiter.Allow(ctx, "user-1", "search", false); !d.Allowed {
		t.Fatal("1st call: expected Allowed")
	}
	if d := limiter.Allow(ctx, "user-1", "search", false); d.Allowed {
		t.Fatal("2nd call: expected Denied")
	}

	// Wait out the TTL; the counter key disappears and a new window opens.
	time.Sleep(1500 * time.Millisecond)

	if d := limiter.Allow(ctx, "user-1", "search", false); !d.Allowed {
		t.Error("call after window expiry: expected Allowed")
	}
}

func TestLimiter_Integration_StatusIsReadOnly(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	limiter, err := NewLimiter(redisClient, Config{Limit: 3, Window: time.Hour})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	ctx := context.Background()

	// Missing counter: full budget, no reset time.
	status, err := limiter.Status(ctx, "user-1", "search")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Remaining != 3 {
		t.Errorf("Remaining = %d, want 3", status.Remaining)
	}
	if !status.ResetAt.IsZero() {
		t.Errorf("ResetAt = %v, want zero", status.ResetAt)
	}

	limiter.Allow(ctx, "user-1", "search", false)
	limiter.Allow(ctx, "user-1", "search", false)

	// Repeated status calls never consume budget.
	for i := 0; i < 10; i++ {
		status, err = limiter.Status(ctx, "user-1", "search")
		if err != nil {
			t.Fatalf("Status call %d: %v", i+1, err)
		}
	}
	if status.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", status.Remaining)
	}
	if status.ResetAt.IsZero() {
		t.Error("ResetAt should be set while a window is open")
	}

	// The user still has budget left after all those status calls.
	if d := limiter.Allow(ctx, "user-1", "search", false); !d.Allowed {
		t.Error("status calls must not consume the user's budget")
	}
}

func TestLimiter_Integration_StuckKeyWithoutTTL(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	limiter, err := NewLimiter(redisClient, Config{Limit: 3, Window: time.Hour})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}

	ctx := context.Background()

	// Simulate a counter whose EXPIRE was lost to a race: key without TTL.
	if err := redisClient.Set(ctx, counterKey("user-1", "search"), 2, 0).Err(); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	status, err := limiter.Status(ctx, "user-1", "search")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", status.Remaining)
	}
	// The reset time is unknown, not "never": ResetAt stays zero.
	if !status.ResetAt.IsZero() {
		t.Errorf("ResetAt = %v, want zero for a key without TTL", status.ResetAt)
	}

	// Denial over such a key falls back to the full window as the retry hint.
	limiter.Allow(ctx, "user-1", "search", false)
	d := limiter.Allow(ctx, "user-1", "search", false)
	if d.Allowed {
		t.Fatal("expected Denied over the limit")
	}
	if d.RetryAfter != time.Hour {
		t.Errorf("RetryAfter = %s, want full window fallback of 1h", d.RetryAfter)
	}
}
