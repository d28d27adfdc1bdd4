// Package memory keeps every aggregate in process memory. It backs DB_DRIVER=memory and tests.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

// Store is the shared in-memory state behind the Users, Products and Orders views.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*entity.User
	products map[string]*entity.Product
	orders   map[string]*entity.Order
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*entity.User),
		products: make(map[string]*entity.Product),
		orders:   make(map[string]*entity.Order),
		now:      time.Now,
	}
}

func (s *Store) Users() *Users       { return &Users{s: s} }
func (s *Store) Products() *Products { return &Products{s: s} }
func (s *Store) Orders() *Orders     { return &Orders{s: s} }

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	if u.ResetCodeExpiresAt != nil {
		t := *u.ResetCodeExpiresAt
		cp.ResetCodeExpiresAt = &t
	}
	return &cp
}

func cloneProduct(p *entity.Product, withReviews bool) *entity.Product {
	cp := *p
	cp.Reviews = nil
	if withReviews {
		cp.Reviews = append([]entity.Review(nil), p.Reviews...)
	}
	return &cp
}

func cloneOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.Items = append([]entity.LineItem(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	if o.PaymentResult != nil {
		r := *o.PaymentResult
		cp.PaymentResult = &r
	}
	return &cp
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return createdAt(items[i]).After(createdAt(items[j])) })
}

var (
	_ repository.UserRepository    = (*Users)(nil)
	_ repository.ProductRepository = (*Products)(nil)
	_ repository.OrderRepository   = (*Orders)(nil)
)
