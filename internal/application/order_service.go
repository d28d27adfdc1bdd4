package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/pricing"
	repo "github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
	"github.com/oksasatya/go-ddd-storefront/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

type OrderService struct {
	Orders   repo.OrderRepository
	Products repo.ProductRepository
	Users    repo.UserRepository
	Notifier Notifier // optional
	Logger   *logrus.Logger
	AppName  string
	now      func() time.Time
}

func NewOrderService(orders repo.OrderRepository, products repo.ProductRepository, users repo.UserRepository, notifier Notifier, logger *logrus.Logger, appName string) *OrderService {
	return &OrderService{
		Orders:   orders,
		Products: products,
		Users:    users,
		Notifier: notifier,
		Logger:   logger,
		AppName:  appName,
		now:      time.Now,
	}
}

// LineRequest is a client cart line. Only the product id and quantity are trusted.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// Quote resolves every line against the catalog and prices the result.
func (s *OrderService) Quote(ctx context.Context, lines []LineRequest) ([]entity.LineItem, pricing.Breakdown, error) {
	if len(lines) == 0 {
		return nil, pricing.Breakdown{}, apperror.InvalidInput("no order items")
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, pricing.Breakdown{}, apperror.InvalidInput("quantity must be at least 1")
		}
		ids = append(ids, l.ProductID)
	}
	found, err := s.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, pricing.Breakdown{}, apperror.Internal(err)
	}
	items := make([]entity.LineItem, 0, len(lines))
	for _, l := range lines {
		p, ok := found[l.ProductID]
		if !ok {
			return nil, pricing.Breakdown{}, apperror.InvalidInput("product not found: " + l.ProductID)
		}
		items = append(items, entity.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  l.Quantity,
		})
	}
	o := entity.Order{Items: items}
	return items, pricing.Compute(o.PricingLines()), nil
}

type CreateOrderInput struct {
	Items         []LineRequest
	Shipping      entity.ShippingAddress
	PaymentMethod string
}

func validShipping(a entity.ShippingAddress) bool {
	return strings.TrimSpace(a.Address) != "" && strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.PostalCode) != "" && strings.TrimSpace(a.Country) != ""
}

// Create persists an unpaid order priced from the catalog.
func (s *OrderService) Create(ctx context.Context, p entity.Principal, in CreateOrderInput) (*entity.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if !validShipping(in.Shipping) {
		return nil, apperror.InvalidInput("shipping address is incomplete")
	}
	items, prices, err := s.Quote(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	o := &entity.Order{
		UserID:        p.UserID,
		Items:         items,
		Shipping:      in.Shipping,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
	}
	o.ApplyPrices(prices)
	if err := s.Orders.Create(ctx, o); err != nil {
		return nil, apperror.Internal(err)
	}
	ordersCreated.Add(1)
	helpers.LogInfo(s.Logger, "order created", logrus.Fields{"order_id": o.ID, "user_id": o.UserID, "total": o.TotalPrice.StringFixed(2)})
	return o, nil
}

// RecordPaid stores an order that was paid before it existed (hosted checkout).
// A second call for the same checkout session returns the order created by the first.
func (s *OrderService) RecordPaid(ctx context.Context, o *entity.Order) (*entity.Order, bool, error) {
	if o.CheckoutSessionID == "" || !o.IsPaid {
		return nil, false, apperror.InvalidInput("paid order requires a checkout session")
	}
	err := s.Orders.Create(ctx, o)
	if errors.Is(err, repo.ErrDuplicate) {
		existing, gerr := s.Orders.GetByCheckoutSession(ctx, o.CheckoutSessionID)
		if gerr != nil {
			return nil, false, notFoundOr(gerr, "order not found")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	ordersCreated.Add(1)
	ordersPaid.Add(1)
	helpers.LogInfo(s.Logger, "paid order recorded", logrus.Fields{"order_id": o.ID, "session_id": o.CheckoutSessionID})
	s.notifyPaid(ctx, o)
	return o, true, nil
}

// MarkPaid moves a CREATED order to PAID. Repeating it with the same
// transaction id is a no-op; a different transaction id is a conflict.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string, res entity.PaymentResult) (*entity.Order, error) {
	if res.ID == "" {
		return nil, apperror.InvalidInput("payment transaction id is required")
	}
	if res.UpdateTime == "" {
		res.UpdateTime = s.now().UTC().Format(time.RFC3339)
	}
	changed, err := s.Orders.MarkPaid(ctx, orderID, s.now(), res)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, apperror.Conflict("payment already recorded for another order")
	}
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	if !changed {
		if o.PaymentResult != nil && o.PaymentResult.ID == res.ID {
			return o, nil
		}
		return nil, apperror.Conflict("order already paid")
	}
	ordersPaid.Add(1)
	helpers.LogInfo(s.Logger, "order paid", logrus.Fields{"order_id": o.ID, "transaction_id": res.ID})
	s.notifyPaid(ctx, o)
	return o, nil
}

// MarkDelivered moves a PAID order to DELIVERED. Delivering twice is a no-op.
func (s *OrderService) MarkDelivered(ctx context.Context, p entity.Principal, orderID string) (*entity.Order, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	changed, err := s.Orders.MarkDelivered(ctx, orderID, s.now())
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	if !changed && !o.IsPaid {
		return nil, apperror.Conflict("order is not paid")
	}
	return o, nil
}

// Get returns the order to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, p entity.Principal, orderID string) (*entity.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	if !p.CanAccess(o.UserID) {
		return nil, apperror.Forbidden("not authorized to view this order")
	}
	return o, nil
}

func (s *OrderService) GetByCheckoutSession(ctx context.Context, p entity.Principal, sessionID string) (*entity.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	o, err := s.Orders.GetByCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	if !p.CanAccess(o.UserID) {
		return nil, apperror.Forbidden("not authorized to view this order")
	}
	return o, nil
}

func (s *OrderService) ListMine(ctx context.Context, p entity.Principal) ([]*entity.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	orders, err := s.Orders.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return orders, nil
}

func (s *OrderService) ListAll(ctx context.Context, p entity.Principal) ([]*entity.Order, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	orders, err := s.Orders.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return orders, nil
}

func (s *OrderService) Delete(ctx context.Context, p entity.Principal, orderID string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if err := s.Orders.Delete(ctx, orderID); err != nil {
		return notFoundOr(err, "order not found")
	}
	helpers.LogInfo(s.Logger, "order deleted", logrus.Fields{"order_id": orderID, "by": p.UserID})
	return nil
}

// notifyPaid queues the payment confirmation email. Failures are logged only.
func (s *OrderService) notifyPaid(ctx context.Context, o *entity.Order) {
	if s.Notifier == nil || s.Users == nil {
		return
	}
	u, err := s.Users.GetByID(ctx, o.UserID)
	if err != nil {
		helpers.LogError(s.Logger, "order owner lookup failed", err, logrus.Fields{"order_id": o.ID})
		return
	}
	lines := make([]mailtpl.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, mailtpl.OrderLine{Name: it.Name, Quantity: it.Quantity, Price: it.Price.StringFixed(2)})
	}
	paidAt := s.now()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.OrderPaid,
		Data:     mailtpl.NewOrderPaidData(s.AppName, u.Name, o.ID, o.TotalPrice.StringFixed(2), paidAt, lines),
	}
	if err := s.Notifier.Notify(ctx, job); err != nil {
		helpers.LogError(s.Logger, "queue order paid email failed", err, logrus.Fields{"order_id": o.ID})
	}
}
