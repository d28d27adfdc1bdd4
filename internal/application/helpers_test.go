package application

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	"github.com/oksasatya/go-ddd-storefront/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
	"github.com/oksasatya/go-ddd-storefront/pkg/mailer"
)

func TestMain(m *testing.M) {
	helpers.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type captureNotifier struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, job mailer.EmailJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.jobs = append(n.jobs, job)
	return nil
}

func (n *captureNotifier) last() mailer.EmailJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.jobs) == 0 {
		return mailer.EmailJob{}
	}
	return n.jobs[len(n.jobs)-1]
}

func (n *captureNotifier) count(template string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, j := range n.jobs {
		if j.Template == template {
			c++
		}
	}
	return c
}

// fakeGateway is a payment gateway whose behaviour is set per test.
type fakeGateway struct {
	mode        payment.Mode
	CreateFunc  func(ctx context.Context, in payment.Intent) (*payment.Handle, error)
	ConfirmFunc func(ctx context.Context, ev payment.Event) (*payment.Confirmation, error)
	StatusFunc  func(ctx context.Context, id string) (*payment.SessionStatus, error)
	lastIntent  payment.Intent
	createCalls int
}

func (g *fakeGateway) Mode() payment.Mode { return g.mode }

func (g *fakeGateway) CreateIntent(ctx context.Context, in payment.Intent) (*payment.Handle, error) {
	g.createCalls++
	g.lastIntent = in
	return g.CreateFunc(ctx, in)
}

func (g *fakeGateway) Confirm(ctx context.Context, ev payment.Event) (*payment.Confirmation, error) {
	return g.ConfirmFunc(ctx, ev)
}

func (g *fakeGateway) SessionStatus(ctx context.Context, id string) (*payment.SessionStatus, error) {
	return g.StatusFunc(ctx, id)
}

type memoryImages struct {
	saved map[string][]byte
	err   error
}

func (m *memoryImages) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[name] = b
	return "/uploads/" + name, nil
}

type fixture struct {
	store    *memory.Store
	notifier *captureNotifier
	accounts *AccountService
	catalog  *CatalogService
	orders   *OrderService
	payments *PaymentService
	admin    entity.Principal
	buyer    entity.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	n := &captureNotifier{}
	jwt := helpers.NewJWTManager("test-secret", time.Hour, 10*time.Minute)
	f := &fixture{
		store:    store,
		notifier: n,
		accounts: NewAccountService(store.Users(), jwt, memory.NewRevocations(), n, nil, "Shop", 10*time.Minute),
		catalog:  NewCatalogService(store.Products(), nil, nil, nil, 8),
		orders:   NewOrderService(store.Orders(), store.Products(), store.Users(), n, nil, "Shop"),
	}
	f.payments = NewPaymentService(f.orders, store.Users(), nil, nil, memory.NewEventGuard(), nil, "usd")
	f.admin = f.addUser(t, "Admin", "admin@example.com", true)
	f.buyer = f.addUser(t, "Ann", "ann@example.com", false)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, admin bool) entity.Principal {
	t.Helper()
	hash, err := helpers.HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	u := &entity.User{Name: name, Email: email, Password: hash, IsAdmin: admin, IsEmailVerified: true}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return entity.NewPrincipal(u)
}

func (f *fixture) addProduct(t *testing.T, name, price string) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: name, Price: decimal.RequireFromString(price), Image: "/images/" + name + ".jpg"}
	if err := f.store.Products().Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

var testShipping = entity.ShippingAddress{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
