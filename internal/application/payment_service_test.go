package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

// hostedFake mimics a hosted provider: sessions keep the metadata they were opened with.
func hostedFake() *fakeGateway {
	g := &fakeGateway{mode: payment.ModeHosted}
	g.CreateFunc = func(_ context.Context, in payment.Intent) (*payment.Handle, error) {
		return &payment.Handle{SessionID: fmt.Sprintf("cs_%d", g.createCalls), ClientSecret: "secret"}, nil
	}
	return g
}

func openSession(t *testing.T, f *fixture, g *fakeGateway, qty int) (*payment.Handle, *entity.Product) {
	t.Helper()
	p := f.addProduct(t, "Headphones", "45.00")
	h, err := f.payments.CreateCheckoutSession(context.Background(), f.buyer, CheckoutInput{
		Items:    []LineRequest{{ProductID: p.ID, Quantity: qty}},
		Shipping: testShipping,
	})
	if err != nil {
		t.Fatal(err)
	}
	return h, p
}

func completedEvent(g *fakeGateway, eventID, sessionID string) {
	md := g.lastIntent.Metadata
	g.ConfirmFunc = func(_ context.Context, ev payment.Event) (*payment.Confirmation, error) {
		if ev.Signature != "good" {
			return nil, payment.ErrInvalidSignature
		}
		return &payment.Confirmation{
			EventID:       eventID,
			Relevant:      true,
			SessionID:     sessionID,
			Success:       true,
			TransactionID: "pi_123",
			Status:        "paid",
			PayerEmail:    "ann@example.com",
			Metadata:      md,
		}, nil
	}
}

func TestCheckoutSessionPricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	h, _ := openSession(t, f, g, 2)

	if h.SessionID != "cs_1" || h.ClientSecret == "" {
		t.Fatalf("handle %+v", h)
	}
	in := g.lastIntent
	if !in.Prices.Total.Equal(mustDec("113.5")) || in.Currency != "usd" || in.Buyer.ID != f.buyer.UserID {
		t.Fatalf("intent %+v", in)
	}
	if in.Metadata[metaUserID] != f.buyer.UserID || in.Metadata[metaCartParts] != "1" {
		t.Fatalf("metadata %v", in.Metadata)
	}
	if n, _ := f.orders.ListAll(context.Background(), f.admin); len(n) != 0 {
		t.Fatal("order created before payment")
	}
}

func TestCheckoutWithoutProvider(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.CreateCheckoutSession(context.Background(), f.buyer, CheckoutInput{Shipping: testShipping})
	if !apperror.Is(err, apperror.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
}

func TestWebhookCreatesOrderOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	h, p := openSession(t, f, g, 2)
	completedEvent(g, "evt_1", h.SessionID)

	o, err := f.payments.HandleWebhook(ctx, []byte("{}"), "good")
	if err != nil {
		t.Fatal(err)
	}
	if o == nil || o.Status() != entity.OrderPaid || o.CheckoutSessionID != h.SessionID {
		t.Fatalf("unexpected order %+v", o)
	}
	if o.Items[0].Name != p.Name || o.Items[0].Quantity != 2 || !o.TotalPrice.Equal(mustDec("113.5")) {
		t.Fatalf("order contents %+v", o)
	}
	if o.PaymentResult.ID != "pi_123" || o.UserID != f.buyer.UserID {
		t.Fatalf("payment result %+v", o.PaymentResult)
	}

	// provider retry of the same event
	again, err := f.payments.HandleWebhook(ctx, []byte("{}"), "good")
	if err != nil || again == nil || again.ID != o.ID {
		t.Fatalf("retry: %v %v", again, err)
	}

	// a distinct event for the same session still maps to the same order
	completedEvent(g, "evt_2", h.SessionID)
	dup, err := f.payments.HandleWebhook(ctx, []byte("{}"), "good")
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID != o.ID {
		t.Fatalf("second event created order %s, want %s", dup.ID, o.ID)
	}

	all, _ := f.orders.ListAll(ctx, f.admin)
	if len(all) != 1 {
		t.Fatalf("orders = %d, want 1", len(all))
	}
	if n := f.notifier.count(mailtpl.OrderPaid); n != 1 {
		t.Fatalf("paid emails = %d, want 1", n)
	}
}

func TestWebhookUsesChargedPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	h, p := openSession(t, f, g, 1)

	price := mustDec("99.00")
	if _, err := f.catalog.Update(ctx, f.admin, p.ID, ProductUpdate{Price: &price}); err != nil {
		t.Fatal(err)
	}
	completedEvent(g, "evt_p", h.SessionID)
	o, err := f.payments.HandleWebhook(ctx, nil, "good")
	if err != nil {
		t.Fatal(err)
	}
	if !o.Items[0].Price.Equal(mustDec("45")) {
		t.Fatalf("line price %s, want the charged 45", o.Items[0].Price)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	h, _ := openSession(t, f, g, 1)
	completedEvent(g, "evt_1", h.SessionID)

	before := webhooksRejected.Value()
	_, err := f.payments.HandleWebhook(context.Background(), []byte("{}"), "forged")
	if !apperror.Is(err, apperror.KindInvalidSignature) {
		t.Fatalf("expected InvalidSignature, got %v", err)
	}
	if webhooksRejected.Value() != before+1 {
		t.Fatal("rejection not counted")
	}
}

func TestWebhookIgnoresIrrelevantEvents(t *testing.T) {
	f := newFixture(t)
	g := hostedFake()
	g.ConfirmFunc = func(context.Context, payment.Event) (*payment.Confirmation, error) {
		return &payment.Confirmation{EventID: "evt_x", Relevant: false}, nil
	}
	f.payments.Hosted = g
	o, err := f.payments.HandleWebhook(context.Background(), []byte("{}"), "sig")
	if err != nil || o != nil {
		t.Fatalf("got %v %v", o, err)
	}

	g.ConfirmFunc = func(context.Context, payment.Event) (*payment.Confirmation, error) {
		return nil, errors.New("unexpected end of JSON input")
	}
	if _, err := f.payments.HandleWebhook(context.Background(), []byte("{"), "sig"); !apperror.Is(err, apperror.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestWebhookReleasesGuardOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	g.ConfirmFunc = func(context.Context, payment.Event) (*payment.Confirmation, error) {
		return &payment.Confirmation{EventID: "evt_bad", Relevant: true, Success: true, SessionID: "cs_x", Metadata: map[string]string{}}, nil
	}
	if _, err := f.payments.HandleWebhook(ctx, nil, "sig"); !apperror.Is(err, apperror.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	first, err := f.payments.Guard.FirstSeen(ctx, "evt_bad", eventGuardTTL)
	if err != nil || !first {
		t.Fatal("failed event was not released for retry")
	}
}

func TestWebhookDuplicateWhileInFlightIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	h, _ := openSession(t, f, g, 1)
	completedEvent(g, "evt_slow", h.SessionID)

	// another delivery of the same event holds the claim but has not stored the order yet
	if first, _ := f.payments.Guard.FirstSeen(ctx, "evt_slow", eventGuardTTL); !first {
		t.Fatal("claim taken")
	}
	o, err := f.payments.HandleWebhook(ctx, nil, "good")
	if !apperror.Is(err, apperror.KindUpstreamUnavailable) || o != nil {
		t.Fatalf("in-flight duplicate: expected UpstreamUnavailable, got %v %v", o, err)
	}

	// the first delivery fails and lets go; the provider's retry then completes the order
	_ = f.payments.Guard.Release(ctx, "evt_slow")
	o, err = f.payments.HandleWebhook(ctx, nil, "good")
	if err != nil || o == nil || !o.IsPaid {
		t.Fatalf("retry after release: %v %v", o, err)
	}
}

func TestSessionStatusReconciles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := hostedFake()
	f.payments.Hosted = g
	h, _ := openSession(t, f, g, 1)
	md := g.lastIntent.Metadata

	status := payment.SessionOpen
	g.StatusFunc = func(_ context.Context, id string) (*payment.SessionStatus, error) {
		if id != h.SessionID {
			return nil, payment.ErrSessionNotFound
		}
		return &payment.SessionStatus{
			SessionID:     id,
			Status:        status,
			Paid:          status == payment.SessionComplete,
			PayerEmail:    "ann@example.com",
			TransactionID: "pi_9",
			Metadata:      md,
		}, nil
	}

	res, err := f.payments.SessionStatus(ctx, h.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != payment.SessionOpen || res.OrderID != "" {
		t.Fatalf("open session: %+v", res)
	}

	status = payment.SessionComplete
	res, err = f.payments.SessionStatus(ctx, h.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderID == "" || res.PayerEmail != "ann@example.com" {
		t.Fatalf("complete session: %+v", res)
	}
	o, err := f.orders.GetByCheckoutSession(ctx, f.buyer, h.SessionID)
	if err != nil || o.ID != res.OrderID {
		t.Fatalf("lookup by session: %v", err)
	}

	// the webhook arriving afterwards finds the same order
	completedEvent(g, "evt_late", h.SessionID)
	late, err := f.payments.HandleWebhook(ctx, nil, "good")
	if err != nil || late.ID != res.OrderID {
		t.Fatalf("late webhook: %v", err)
	}

	if _, err := f.payments.SessionStatus(ctx, "cs_unknown"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func directFake(success bool, message string) *fakeGateway {
	g := &fakeGateway{mode: payment.ModeDirect}
	g.CreateFunc = func(_ context.Context, in payment.Intent) (*payment.Handle, error) {
		return &payment.Handle{Payload: []byte(in.OrderID)}, nil
	}
	g.ConfirmFunc = func(_ context.Context, ev payment.Event) (*payment.Confirmation, error) {
		return &payment.Confirmation{
			Relevant:       true,
			Success:        success,
			TransactionID:  "iyz-" + string(ev.Payload),
			Status:         "success",
			FailureMessage: message,
		}, nil
	}
	return g
}

var testCard = payment.Card{HolderName: "Ann Buyer", Number: "5528790000000008", ExpireMonth: "12", ExpireYear: "2030", CVC: "123"}

func TestPayDirectSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := directFake(true, "")
	f.payments.Direct = g
	o := newOrder(t, f, f.buyer)

	paid, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status() != entity.OrderPaid || paid.PaymentResult.ID != "iyz-"+o.ID {
		t.Fatalf("unexpected %+v", paid)
	}
	in := g.lastIntent
	if in.Card == nil || in.Buyer.IP != "10.0.0.1" || !in.Prices.Total.Equal(o.TotalPrice) {
		t.Fatalf("intent %+v", in)
	}
	if _, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, ""); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("paying twice: expected Conflict, got %v", err)
	}
	if g.createCalls != 1 {
		t.Fatalf("provider charged %d times", g.createCalls)
	}
}

func TestPayDirectDecline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.payments.Direct = directFake(false, "Not sufficient funds")
	o := newOrder(t, f, f.buyer)

	_, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, "")
	if !apperror.Is(err, apperror.KindUpstreamUnavailable) || apperror.MessageOf(err) != "Not sufficient funds" {
		t.Fatalf("got %v", err)
	}
	got, _ := f.orders.Get(ctx, f.buyer, o.ID)
	if got.IsPaid {
		t.Fatal("declined payment marked the order paid")
	}
}

func TestPayDirectProviderError(t *testing.T) {
	f := newFixture(t)
	g := directFake(true, "")
	g.CreateFunc = func(context.Context, payment.Intent) (*payment.Handle, error) {
		return nil, errors.New("connection reset")
	}
	f.payments.Direct = g
	o := newOrder(t, f, f.buyer)
	if _, err := f.payments.PayDirect(context.Background(), f.buyer, o.ID, testCard, ""); !apperror.Is(err, apperror.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
}

func TestPayDirectOtherUsersOrder(t *testing.T) {
	f := newFixture(t)
	f.payments.Direct = directFake(true, "")
	o := newOrder(t, f, f.buyer)
	eve := f.addUser(t, "Eve", "eve@example.com", false)
	if _, err := f.payments.PayDirect(context.Background(), eve, o.ID, testCard, ""); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestPayDirectConcurrentChargesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := directFake(true, "")
	entered := make(chan struct{})
	proceed := make(chan struct{})
	create := g.CreateFunc
	g.CreateFunc = func(ctx context.Context, in payment.Intent) (*payment.Handle, error) {
		close(entered)
		<-proceed
		return create(ctx, in)
	}
	f.payments.Direct = g
	o := newOrder(t, f, f.buyer)

	type result struct {
		o   *entity.Order
		err error
	}
	done := make(chan result, 1)
	go func() {
		paid, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, "")
		done <- result{paid, err}
	}()
	<-entered

	if _, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, ""); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("second charge while first in flight: expected Conflict, got %v", err)
	}
	close(proceed)
	res := <-done
	if res.err != nil || !res.o.IsPaid {
		t.Fatalf("first charge: %v %v", res.o, res.err)
	}
	if g.createCalls != 1 {
		t.Fatalf("provider charged %d times", g.createCalls)
	}
}

func TestPayDirectDeclineReleasesClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := directFake(false, "Not sufficient funds")
	f.payments.Direct = g
	o := newOrder(t, f, f.buyer)

	if _, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, ""); !apperror.Is(err, apperror.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
	f.payments.Direct = directFake(true, "")
	paid, err := f.payments.PayDirect(ctx, f.buyer, o.ID, testCard, "")
	if err != nil || !paid.IsPaid {
		t.Fatalf("retry after decline: %v %v", paid, err)
	}
}
