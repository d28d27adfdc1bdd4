package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

// These tests need a live Redis; set REDIS_TEST_ADDR to run them.
func testClient(t *testing.T) *TopProducts {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := helpers.NewRedisClient(addr, "", 15)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTopProducts(rdb, helpers.NewDiscardLogger())
}

func TestEventGuardClaimsOnce(t *testing.T) {
	ctx := context.Background()
	g := NewEventGuard(testClient(t).rdb)
	id := "evt_" + uuid.NewString()

	first, err := g.FirstSeen(ctx, id, time.Minute)
	if err != nil || !first {
		t.Fatalf("first claim: %v %v", first, err)
	}
	again, _ := g.FirstSeen(ctx, id, time.Minute)
	if again {
		t.Fatal("second claim succeeded")
	}
	_ = g.Release(ctx, id)
	if ok, _ := g.FirstSeen(ctx, id, time.Minute); !ok {
		t.Fatal("released id not claimable")
	}
}

func TestRevocations(t *testing.T) {
	ctx := context.Background()
	r := NewRevocations(testClient(t).rdb)
	jti := uuid.NewString()
	if err := r.Revoke(ctx, jti, time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if ok, err := r.IsRevoked(ctx, jti); err != nil || !ok {
		t.Fatalf("revoked: %v %v", ok, err)
	}
	if ok, _ := r.IsRevoked(ctx, uuid.NewString()); ok {
		t.Fatal("unknown id reported revoked")
	}
}

func TestTopProductsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)
	c.Invalidate(ctx)
	if _, ok := c.GetTop(ctx, 3); ok {
		t.Fatal("hit after invalidate")
	}
	c.SetTop(ctx, 3, []*entity.Product{{ID: "p1", Name: "Phone", Price: decimal.RequireFromString("599.99"), Rating: 4.5}})
	got, ok := c.GetTop(ctx, 3)
	if !ok || len(got) != 1 || !got[0].Price.Equal(decimal.RequireFromString("599.99")) {
		t.Fatalf("got %+v %v", got, ok)
	}
	c.Invalidate(ctx)
}
