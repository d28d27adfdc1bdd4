package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
)

type OrderRepository interface {
	// Create inserts o. A non-empty CheckoutSessionID or payment id that is already
	// used yields ErrDuplicate.
	Create(ctx context.Context, o *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*entity.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Order, error)
	List(ctx context.Context) ([]*entity.Order, error)
	// MarkPaid transitions an unpaid order to paid. It reports false when the
	// order exists but was already paid, and ErrNotFound when it does not exist.
	MarkPaid(ctx context.Context, id string, at time.Time, res entity.PaymentResult) (bool, error)
	// MarkDelivered transitions a paid, undelivered order. It reports false when
	// the order exists but is unpaid or already delivered.
	MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}
