package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
)

type Orders struct{ s *Store }

func (r *Orders) Create(_ context.Context, o *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.orders {
		if o.CheckoutSessionID != "" && cur.CheckoutSessionID == o.CheckoutSessionID {
			return repository.ErrDuplicate
		}
		if o.PaymentResult != nil && cur.PaymentResult != nil && o.PaymentResult.ID != "" &&
			cur.PaymentResult.ID == o.PaymentResult.ID {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	o.ID = uuid.NewString()
	o.CreatedAt, o.UpdatedAt = now, now
	r.s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *Orders) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Orders) GetByCheckoutSession(_ context.Context, sessionID string) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if sessionID == "" {
		return nil, repository.ErrNotFound
	}
	for _, o := range r.s.orders {
		if o.CheckoutSessionID == sessionID {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Orders) collect(keep func(*entity.Order) bool) []*entity.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Order, 0)
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out, func(o *entity.Order) time.Time { return o.CreatedAt })
	return out
}

func (r *Orders) ListByUser(_ context.Context, userID string) ([]*entity.Order, error) {
	return r.collect(func(o *entity.Order) bool { return o.UserID == userID }), nil
}

func (r *Orders) List(_ context.Context) ([]*entity.Order, error) {
	return r.collect(func(*entity.Order) bool { return true }), nil
}

func (r *Orders) MarkPaid(_ context.Context, id string, at time.Time, res entity.PaymentResult) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if o.IsPaid {
		return false, nil
	}
	for oid, cur := range r.s.orders {
		if oid != id && cur.PaymentResult != nil && cur.PaymentResult.ID == res.ID {
			return false, repository.ErrDuplicate
		}
	}
	next := cloneOrder(o)
	next.MarkPaid(at, res)
	next.UpdatedAt = r.s.now()
	r.s.orders[id] = next
	return true, nil
}

func (r *Orders) MarkDelivered(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !o.IsPaid || o.IsDelivered {
		return false, nil
	}
	next := cloneOrder(o)
	next.IsDelivered = true
	next.DeliveredAt = &at
	next.UpdatedAt = r.s.now()
	r.s.orders[id] = next
	return true, nil
}

func (r *Orders) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}
