package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuoteUsesCatalogPrices(t *testing.T) {
	f := newFixture(t)
	kb := f.addProduct(t, "Keyboard", "45.00")

	items, prices, err := f.orders.Quote(context.Background(), []LineRequest{{ProductID: kb.ID, Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "Keyboard" || !items[0].Price.Equal(mustDec("45")) {
		t.Fatalf("items %+v", items)
	}
	want := map[string]string{"items": "90", "shipping": "10", "tax": "13.5", "total": "113.5"}
	got := map[string]decimal.Decimal{"items": prices.Items, "shipping": prices.Shipping, "tax": prices.Tax, "total": prices.Total}
	for k, v := range want {
		if !got[k].Equal(mustDec(v)) {
			t.Fatalf("%s = %s, want %s", k, got[k], v)
		}
	}
}

func TestQuoteRejectsBadLines(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Cable", "5.00")
	cases := map[string][]LineRequest{
		"empty":         nil,
		"zero quantity": {{ProductID: p.ID, Quantity: 0}},
		"unknown":       {{ProductID: "nope", Quantity: 1}},
	}
	for name, lines := range cases {
		if _, _, err := f.orders.Quote(context.Background(), lines); !apperror.Is(err, apperror.KindInvalidInput) {
			t.Fatalf("%s: expected InvalidInput, got %v", name, err)
		}
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.addProduct(t, "Monitor", "120.00")

	_, err := f.orders.Create(ctx, f.buyer, CreateOrderInput{
		Items: []LineRequest{{ProductID: p.ID, Quantity: 1}},
	})
	if !apperror.Is(err, apperror.KindInvalidInput) {
		t.Fatalf("missing shipping: expected InvalidInput, got %v", err)
	}

	o, err := f.orders.Create(ctx, f.buyer, CreateOrderInput{
		Items:         []LineRequest{{ProductID: p.ID, Quantity: 1}},
		Shipping:      testShipping,
		PaymentMethod: "Card",
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Status() != entity.OrderCreated || o.UserID != f.buyer.UserID {
		t.Fatalf("unexpected order %+v", o)
	}
	// free shipping above 100
	if !o.ShippingPrice.IsZero() || !o.TotalPrice.Equal(mustDec("138")) {
		t.Fatalf("shipping %s total %s", o.ShippingPrice, o.TotalPrice)
	}
}

func newOrder(t *testing.T, f *fixture, owner entity.Principal) *entity.Order {
	t.Helper()
	p := f.addProduct(t, "Widget", "20.00")
	o, err := f.orders.Create(context.Background(), owner, CreateOrderInput{
		Items:    []LineRequest{{ProductID: p.ID, Quantity: 1}},
		Shipping: testShipping,
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := newOrder(t, f, f.buyer)

	paid, err := f.orders.MarkPaid(ctx, o.ID, entity.PaymentResult{ID: "txn-1", Status: "success"})
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status() != entity.OrderPaid || paid.PaidAt == nil || paid.PaymentResult.ID != "txn-1" {
		t.Fatalf("unexpected %+v", paid)
	}
	first := *paid.PaidAt

	again, err := f.orders.MarkPaid(ctx, o.ID, entity.PaymentResult{ID: "txn-1", Status: "success"})
	if err != nil {
		t.Fatalf("repeat with same transaction: %v", err)
	}
	if !again.PaidAt.Equal(first) {
		t.Fatal("repeat changed paidAt")
	}
	if n := f.notifier.count(mailtpl.OrderPaid); n != 1 {
		t.Fatalf("paid emails = %d, want 1", n)
	}

	if _, err := f.orders.MarkPaid(ctx, o.ID, entity.PaymentResult{ID: "txn-2"}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("other transaction: expected Conflict, got %v", err)
	}

	other := newOrder(t, f, f.buyer)
	if _, err := f.orders.MarkPaid(ctx, other.ID, entity.PaymentResult{ID: "txn-1"}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("reused transaction: expected Conflict, got %v", err)
	}
	if _, err := f.orders.MarkPaid(ctx, "missing", entity.PaymentResult{ID: "txn-3"}); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := newOrder(t, f, f.buyer)

	if _, err := f.orders.MarkDelivered(ctx, f.buyer, o.ID); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("non-admin: expected Forbidden, got %v", err)
	}
	if _, err := f.orders.MarkDelivered(ctx, f.admin, o.ID); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("unpaid: expected Conflict, got %v", err)
	}
	if _, err := f.orders.MarkPaid(ctx, o.ID, entity.PaymentResult{ID: "txn-d"}); err != nil {
		t.Fatal(err)
	}
	d, err := f.orders.MarkDelivered(ctx, f.admin, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status() != entity.OrderDelivered || d.DeliveredAt == nil {
		t.Fatalf("unexpected %+v", d)
	}
	first := *d.DeliveredAt
	d, err = f.orders.MarkDelivered(ctx, f.admin, o.ID)
	if err != nil || !d.DeliveredAt.Equal(first) {
		t.Fatalf("second delivery: %v", err)
	}
}

func TestOrderAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := newOrder(t, f, f.buyer)
	stranger := f.addUser(t, "Eve", "eve@example.com", false)

	if _, err := f.orders.Get(ctx, stranger, o.ID); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("stranger: expected Forbidden, got %v", err)
	}
	if _, err := f.orders.Get(ctx, f.buyer, o.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := f.orders.Get(ctx, f.admin, o.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}

	mine, _ := f.orders.ListMine(ctx, f.buyer)
	theirs, _ := f.orders.ListMine(ctx, stranger)
	if len(mine) != 1 || len(theirs) != 0 {
		t.Fatalf("mine %d theirs %d", len(mine), len(theirs))
	}
	if _, err := f.orders.ListAll(ctx, f.buyer); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err := f.orders.Delete(ctx, f.admin, o.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.Get(ctx, f.admin, o.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
