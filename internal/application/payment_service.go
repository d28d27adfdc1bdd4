package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/pricing"
	repo "github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

const (
	eventGuardTTL     = 72 * time.Hour
	payClaimTTL       = 15 * time.Minute
	hostedMethodLabel = "Stripe"
)

type PaymentService struct {
	Orders   *OrderService
	Users    repo.UserRepository
	Hosted   payment.SessionGateway // nil when not configured
	Direct   payment.Gateway        // nil when not configured
	Guard    EventGuard             // optional
	Logger   *logrus.Logger
	Currency string
	now      func() time.Time
}

func NewPaymentService(orders *OrderService, users repo.UserRepository, hosted payment.SessionGateway, direct payment.Gateway, guard EventGuard, logger *logrus.Logger, currency string) *PaymentService {
	return &PaymentService{
		Orders:   orders,
		Users:    users,
		Hosted:   hosted,
		Direct:   direct,
		Guard:    guard,
		Logger:   logger,
		Currency: currency,
		now:      time.Now,
	}
}

var errNotConfigured = apperror.Upstream("payment provider not configured", nil)

type CheckoutInput struct {
	Items    []LineRequest
	Shipping entity.ShippingAddress
}

// CreateCheckoutSession prices the cart from the catalog and opens a hosted session.
// The order is only created once the provider reports the session paid.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, p entity.Principal, in CheckoutInput) (*payment.Handle, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if s.Hosted == nil {
		return nil, errNotConfigured
	}
	if !validShipping(in.Shipping) {
		return nil, apperror.InvalidInput("shipping address is incomplete")
	}
	items, prices, err := s.Orders.Quote(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	md, err := encodeCheckoutMetadata(p.UserID, items, in.Shipping)
	if err != nil {
		return nil, apperror.InvalidInput(err.Error())
	}
	h, err := s.Hosted.CreateIntent(ctx, payment.Intent{
		Items:    items,
		Shipping: in.Shipping,
		Prices:   prices,
		Currency: s.Currency,
		Buyer:    payment.Buyer{ID: p.UserID, Name: p.Name, Email: p.Email},
		Metadata: md,
	})
	if err != nil {
		helpers.LogError(s.Logger, "create checkout session failed", err, logrus.Fields{"user_id": p.UserID})
		return nil, apperror.Upstream("payment provider error", err)
	}
	helpers.LogInfo(s.Logger, "checkout session created", logrus.Fields{"user_id": p.UserID, "session_id": h.SessionID})
	return h, nil
}

// HandleWebhook verifies a provider notification and reconciles a completed session.
// It returns a nil order for events that need no action.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*entity.Order, error) {
	if s.Hosted == nil {
		return nil, errNotConfigured
	}
	conf, err := s.Hosted.Confirm(ctx, payment.Event{Payload: payload, Signature: signature})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			webhooksRejected.Add(1)
			helpers.LogError(s.Logger, "webhook rejected", err, nil)
			return nil, apperror.InvalidSignature(err)
		}
		return nil, apperror.InvalidInput("malformed webhook event")
	}
	if !conf.Relevant || !conf.Success {
		return nil, nil
	}

	if s.Guard != nil && conf.EventID != "" {
		first, gerr := s.Guard.FirstSeen(ctx, conf.EventID, eventGuardTTL)
		if gerr != nil {
			helpers.LogError(s.Logger, "event guard unavailable", gerr, nil)
		} else if !first {
			return s.duplicateEvent(ctx, conf)
		}
	}
	o, err := s.reconcile(ctx, conf)
	if err != nil && s.Guard != nil && conf.EventID != "" {
		// let the provider's retry try again
		_ = s.Guard.Release(ctx, conf.EventID)
	}
	return o, err
}

// duplicateEvent answers a redelivered event. Until the first delivery has
// recorded the order the provider gets an error, so it keeps retrying.
func (s *PaymentService) duplicateEvent(ctx context.Context, conf *payment.Confirmation) (*entity.Order, error) {
	o, err := s.Orders.Orders.GetByCheckoutSession(ctx, conf.SessionID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Internal(err)
	}
	helpers.LogInfo(s.Logger, "webhook event still in flight", logrus.Fields{"event_id": conf.EventID, "session_id": conf.SessionID})
	return nil, apperror.Upstream("event is still being processed", nil)
}

type SessionStatusResult struct {
	Status     string
	PayerEmail string
	OrderID    string
}

// SessionStatus polls the provider and reconciles a paid session the same way the webhook would.
func (s *PaymentService) SessionStatus(ctx context.Context, sessionID string) (*SessionStatusResult, error) {
	if s.Hosted == nil {
		return nil, errNotConfigured
	}
	if sessionID == "" {
		return nil, apperror.InvalidInput("session_id is required")
	}
	st, err := s.Hosted.SessionStatus(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, apperror.NotFound("checkout session not found")
		}
		return nil, apperror.Upstream("payment provider error", err)
	}
	res := &SessionStatusResult{Status: st.Status, PayerEmail: st.PayerEmail}
	if st.Status == payment.SessionComplete && st.Paid {
		o, err := s.reconcile(ctx, &payment.Confirmation{
			Relevant:      true,
			SessionID:     st.SessionID,
			Success:       true,
			TransactionID: st.TransactionID,
			Status:        "paid",
			PayerEmail:    st.PayerEmail,
			Metadata:      st.Metadata,
		})
		if err != nil {
			return nil, err
		}
		res.OrderID = o.ID
	}
	return res, nil
}

// reconcile creates the paid order for a completed hosted session exactly once.
func (s *PaymentService) reconcile(ctx context.Context, conf *payment.Confirmation) (*entity.Order, error) {
	if existing, err := s.Orders.Orders.GetByCheckoutSession(ctx, conf.SessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	snap, err := decodeCheckoutMetadata(conf.Metadata)
	if err != nil {
		helpers.LogError(s.Logger, "checkout session metadata unreadable", err, logrus.Fields{"session_id": conf.SessionID})
		return nil, apperror.InvalidInput("checkout session metadata is invalid")
	}
	items, err := s.snapshotItems(ctx, snap.Lines)
	if err != nil {
		return nil, err
	}
	o := &entity.Order{
		UserID:            snap.UserID,
		Items:             items,
		Shipping:          snap.Shipping,
		PaymentMethod:     hostedMethodLabel,
		CheckoutSessionID: conf.SessionID,
	}
	o.ApplyPrices(pricing.Compute(o.PricingLines()))
	txn := conf.TransactionID
	if txn == "" {
		txn = conf.SessionID
	}
	o.MarkPaid(s.now(), entity.PaymentResult{
		ID:           txn,
		Status:       conf.Status,
		UpdateTime:   s.now().UTC().Format(time.RFC3339),
		EmailAddress: conf.PayerEmail,
	})
	saved, _, err := s.Orders.RecordPaid(ctx, o)
	return saved, err
}

// snapshotItems rebuilds line items at the prices that were charged.
// Products deleted since checkout keep their id as name.
func (s *PaymentService) snapshotItems(ctx context.Context, lines []metaLine) ([]entity.LineItem, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	found, err := s.Orders.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	items := make([]entity.LineItem, 0, len(lines))
	for _, l := range lines {
		it := entity.LineItem{
			ProductID: l.ID,
			Name:      l.ID,
			Price:     decimal.RequireFromString(l.Price),
			Quantity:  l.Quantity,
		}
		if p, ok := found[l.ID]; ok {
			it.Name, it.Image = p.Name, p.Image
		}
		items = append(items, it)
	}
	return items, nil
}

// PayDirect charges a card for an existing unpaid order.
// On a provider decline the order is left untouched and the provider's message is returned.
// Only one charge per order runs at a time; the claim is kept once the card was charged.
func (s *PaymentService) PayDirect(ctx context.Context, p entity.Principal, orderID string, card payment.Card, clientIP string) (*entity.Order, error) {
	if s.Direct == nil {
		return nil, errNotConfigured
	}
	o, err := s.Orders.Get(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsPaid {
		return nil, apperror.Conflict("order already paid")
	}
	release, err := s.claimPayment(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	charged := false
	defer func() {
		if !charged {
			release()
		}
	}()
	u, err := s.Users.GetByID(ctx, o.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}

	h, err := s.Direct.CreateIntent(ctx, payment.Intent{
		OrderID:  o.ID,
		Items:    o.Items,
		Shipping: o.Shipping,
		Prices: pricing.Breakdown{
			Items: o.ItemsPrice, Shipping: o.ShippingPrice, Tax: o.TaxPrice, Total: o.TotalPrice,
		},
		Currency: s.Currency,
		Buyer: payment.Buyer{
			ID: u.ID, Name: u.Name, Email: u.Email, IP: clientIP, RegisteredAt: u.CreatedAt,
		},
		Card: &card,
	})
	if err != nil {
		helpers.LogError(s.Logger, "direct payment call failed", err, logrus.Fields{
			"order_id": o.ID, "card": helpers.MaskPAN(card.Number),
		})
		return nil, apperror.Upstream("payment provider error", err)
	}
	conf, err := s.Direct.Confirm(ctx, payment.Event{Payload: h.Payload})
	if err != nil {
		return nil, apperror.Upstream("payment provider error", err)
	}
	if !conf.Success {
		helpers.LogInfo(s.Logger, "direct payment declined", logrus.Fields{"order_id": o.ID, "reason": conf.FailureMessage})
		msg := conf.FailureMessage
		if msg == "" {
			msg = "payment failed"
		}
		return nil, apperror.Upstream(msg, nil)
	}
	charged = true
	return s.Orders.MarkPaid(ctx, o.ID, entity.PaymentResult{
		ID:           conf.TransactionID,
		Status:       conf.Status,
		EmailAddress: u.Email,
	})
}

// claimPayment takes the per-order payment claim. The returned func gives it back.
func (s *PaymentService) claimPayment(ctx context.Context, orderID string) (func(), error) {
	if s.Guard == nil {
		return func() {}, nil
	}
	key := "pay:" + orderID
	first, err := s.Guard.FirstSeen(ctx, key, payClaimTTL)
	if err != nil {
		helpers.LogError(s.Logger, "payment claim unavailable", err, logrus.Fields{"order_id": orderID})
		return nil, apperror.Upstream("payment temporarily unavailable", err)
	}
	if !first {
		return nil, apperror.Conflict("payment already in progress")
	}
	return func() {
		if err := s.Guard.Release(context.WithoutCancel(ctx), key); err != nil {
			helpers.LogError(s.Logger, "release payment claim failed", err, logrus.Fields{"order_id": orderID})
		}
	}, nil
}
