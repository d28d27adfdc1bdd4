package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

func TestUsersEmailUnique(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	if err := users.Create(ctx, &entity.User{Email: "Ann@Example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := users.Create(ctx, &entity.User{Email: "ann@example.com"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	u, err := users.GetByEmail(ctx, "ANN@example.com")
	if err != nil || u.Email != "ann@example.com" {
		t.Fatalf("lookup: %v %+v", err, u)
	}
	if _, err := users.GetByID(ctx, "not-a-uuid"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUsersReturnCopies(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	u := &entity.User{Name: "Ann", Email: "a@x.io"}
	_ = users.Create(ctx, u)
	got, _ := users.GetByID(ctx, u.ID)
	got.Name = "changed"
	again, _ := users.GetByID(ctx, u.ID)
	if again.Name != "Ann" {
		t.Fatal("store state was mutated through a returned pointer")
	}
}

func TestProductsListPagesAndKeyword(t *testing.T) {
	ctx := context.Background()
	products := NewStore().Products()
	for _, n := range []string{"Red Mouse", "Blue Mouse", "Keyboard"} {
		if err := products.Create(ctx, &entity.Product{Name: n, Price: decimal.NewFromInt(5)}); err != nil {
			t.Fatal(err)
		}
	}
	got, total, err := products.List(ctx, repository.ProductFilter{Keyword: "mouse", Page: 1, PageSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(got) != 1 {
		t.Fatalf("total=%d len=%d", total, len(got))
	}
	_, total, _ = products.List(ctx, repository.ProductFilter{Page: 5, PageSize: 8})
	if total != 3 {
		t.Fatalf("total=%d", total)
	}
}

func TestProductsAddReviewOncePerUser(t *testing.T) {
	ctx := context.Background()
	products := NewStore().Products()
	p := &entity.Product{Name: "Mouse"}
	_ = products.Create(ctx, p)

	got, err := products.AddReview(ctx, p.ID, entity.Review{UserID: "u1", Rating: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got.NumReviews != 1 || got.Rating != 4 {
		t.Fatalf("aggregate: %+v", got)
	}
	if _, err := products.AddReview(ctx, p.ID, entity.Review{UserID: "u1", Rating: 1}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	// Update must not wipe reviews or the aggregate.
	got.Name = "Mouse 2"
	if err := products.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	after, _ := products.GetByID(ctx, p.ID)
	if after.Name != "Mouse 2" || after.NumReviews != 1 || len(after.Reviews) != 1 {
		t.Fatalf("after update: %+v", after)
	}
}

func TestOrdersMarkPaidOnce(t *testing.T) {
	ctx := context.Background()
	orders := NewStore().Orders()
	o := &entity.Order{UserID: "u1"}
	_ = orders.Create(ctx, o)

	ok, err := orders.MarkPaid(ctx, o.ID, time.Now(), entity.PaymentResult{ID: "tx1"})
	if err != nil || !ok {
		t.Fatalf("first: %v %v", ok, err)
	}
	ok, err = orders.MarkPaid(ctx, o.ID, time.Now(), entity.PaymentResult{ID: "tx1"})
	if err != nil || ok {
		t.Fatalf("second should be a no-op: %v %v", ok, err)
	}
	if _, err := orders.MarkPaid(ctx, "missing", time.Now(), entity.PaymentResult{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrdersMarkDeliveredRequiresPaid(t *testing.T) {
	ctx := context.Background()
	orders := NewStore().Orders()
	o := &entity.Order{UserID: "u1"}
	_ = orders.Create(ctx, o)
	if ok, _ := orders.MarkDelivered(ctx, o.ID, time.Now()); ok {
		t.Fatal("unpaid order delivered")
	}
	_, _ = orders.MarkPaid(ctx, o.ID, time.Now(), entity.PaymentResult{ID: "tx"})
	if ok, _ := orders.MarkDelivered(ctx, o.ID, time.Now()); !ok {
		t.Fatal("paid order not delivered")
	}
	got, _ := orders.GetByID(ctx, o.ID)
	if got.Status() != entity.OrderDelivered || got.DeliveredAt == nil {
		t.Fatalf("status %s", got.Status())
	}
}

func TestOrdersCheckoutSessionUnique(t *testing.T) {
	ctx := context.Background()
	orders := NewStore().Orders()
	if err := orders.Create(ctx, &entity.Order{CheckoutSessionID: "cs_1"}); err != nil {
		t.Fatal(err)
	}
	if err := orders.Create(ctx, &entity.Order{CheckoutSessionID: "cs_1"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := orders.GetByCheckoutSession(ctx, "cs_1"); err != nil {
		t.Fatal(err)
	}
}

func TestEventGuard(t *testing.T) {
	ctx := context.Background()
	g := NewEventGuard()
	if ok, _ := g.FirstSeen(ctx, "evt", time.Hour); !ok {
		t.Fatal("first delivery not seen as first")
	}
	if ok, _ := g.FirstSeen(ctx, "evt", time.Hour); ok {
		t.Fatal("retry seen as first")
	}
	_ = g.Release(ctx, "evt")
	if ok, _ := g.FirstSeen(ctx, "evt", time.Hour); !ok {
		t.Fatal("released event not accepted again")
	}
}

func TestRevocations(t *testing.T) {
	ctx := context.Background()
	r := NewRevocations()
	_ = r.Revoke(ctx, "jti", time.Now().Add(time.Hour))
	if ok, _ := r.IsRevoked(ctx, "jti"); !ok {
		t.Fatal("not revoked")
	}
	_ = r.Revoke(ctx, "old", time.Now().Add(-time.Second))
	if ok, _ := r.IsRevoked(ctx, "old"); ok {
		t.Fatal("expired revocation still active")
	}
}
