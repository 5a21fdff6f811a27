//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/testutil"
)

func setupCache(t *testing.T) *Cache {
	t.Helper()

	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return c
}

func TestReportCache_SetGetInvalidate(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	_, gen, err := c.GetReport(ctx, "alice", 2024, 3)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("GetReport() on empty cache error = %v, want ErrCacheMiss", err)
	}
	if gen != 0 {
		t.Fatalf("GetReport() generation = %d, want 0", gen)
	}

	report := model.Report{"Food": decimal.RequireFromString("15.00")}
	if err := c.SetReport(ctx, "alice", gen, 2024, 3, report); err != nil {
		t.Fatalf("SetReport() error = %v", err)
	}

	got, _, err := c.GetReport(ctx, "alice", 2024, 3)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if !got["Food"].Equal(report["Food"]) {
		t.Errorf("Food = %s, want 15", got["Food"])
	}

	if _, _, err := c.GetReport(ctx, "bob", 2024, 3); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("other user's report should miss, got %v", err)
	}

	if err := c.InvalidateReports(ctx, "alice"); err != nil {
		t.Fatalf("InvalidateReports() error = %v", err)
	}
	if _, _, err := c.GetReport(ctx, "alice", 2024, 3); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("GetReport() after invalidation error = %v, want ErrCacheMiss", err)
	}
}

func TestReportCache_WriteUnderOldGenerationStaysHidden(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	_, gen, err := c.GetReport(ctx, "alice", 2024, 3)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("GetReport() error = %v, want ErrCacheMiss", err)
	}

	if err := c.InvalidateReports(ctx, "alice"); err != nil {
		t.Fatalf("InvalidateReports() error = %v", err)
	}

	stale := model.Report{"Food": decimal.RequireFromString("10.00")}
	if err := c.SetReport(ctx, "alice", gen, 2024, 3, stale); err != nil {
		t.Fatalf("SetReport() error = %v", err)
	}

	if _, _, err := c.GetReport(ctx, "alice", 2024, 3); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("report computed before invalidation must not be served, got %v", err)
	}
}

func TestAuthContextCache_RoundTrip(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	got, err := c.GetAuthContext(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("GetAuthContext() on miss = %v, %v; want nil, nil", got, err)
	}

	authCtx := &model.AuthContext{
		KeyID:     "key-1",
		KeyPrefix: "a1b2c3",
		UserID:    "alice",
		Scopes:    []string{model.ScopeRead},
	}
	if err := c.SetAuthContext(ctx, "k", authCtx); err != nil {
		t.Fatalf("SetAuthContext() error = %v", err)
	}

	got, err = c.GetAuthContext(ctx, "k")
	if err != nil || got == nil {
		t.Fatalf("GetAuthContext() = %v, %v", got, err)
	}
	if got.UserID != "alice" || !got.HasScope(model.ScopeRead) {
		t.Errorf("GetAuthContext() = %+v", got)
	}

	if err := c.DeleteAuthContext(ctx, "k"); err != nil {
		t.Fatalf("DeleteAuthContext() error = %v", err)
	}
	if got, _ := c.GetAuthContext(ctx, "k"); got != nil {
		t.Error("expected miss after delete")
	}
}

func TestAllowUser_TokenBucket(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.AllowUser(ctx, "alice", 1, 3)
		if err != nil {
			t.Fatalf("AllowUser() error = %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should fit in the burst", i)
		}
	}

	res, err := c.AllowUser(ctx, "alice", 1, 3)
	if err != nil {
		t.Fatalf("AllowUser() error = %v", err)
	}
	if res.Allowed || res.RetryAfter <= 0 {
		t.Errorf("expected rejection with a retry hint, got %+v", res)
	}

	res, err = c.AllowUser(ctx, "bob", 1, 3)
	if err != nil || !res.Allowed {
		t.Errorf("buckets must be per user, got %+v, %v", res, err)
	}
}
