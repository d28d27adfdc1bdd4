package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/pricing"
)

type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderPaid      OrderStatus = "PAID"
	OrderDelivered OrderStatus = "DELIVERED"
)

// LineItem is a snapshot of a catalog product taken when the order was priced.
type LineItem struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// PaymentResult is what the provider reported for a successful charge.
type PaymentResult struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

type Order struct {
	ID                string
	UserID            string
	Items             []LineItem
	Shipping          ShippingAddress
	PaymentMethod     string
	ItemsPrice        decimal.Decimal
	ShippingPrice     decimal.Decimal
	TaxPrice          decimal.Decimal
	TotalPrice        decimal.Decimal
	IsPaid            bool
	PaidAt            *time.Time
	IsDelivered       bool
	DeliveredAt       *time.Time
	PaymentResult     *PaymentResult
	CheckoutSessionID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (o *Order) Status() OrderStatus {
	switch {
	case o.IsDelivered:
		return OrderDelivered
	case o.IsPaid:
		return OrderPaid
	default:
		return OrderCreated
	}
}

// PricingLines returns the order items in the shape the pricing function takes.
func (o *Order) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, pricing.Line{UnitPrice: it.Price, Quantity: it.Quantity})
	}
	return lines
}

// ApplyPrices copies a computed breakdown into the order's money fields.
func (o *Order) ApplyPrices(b pricing.Breakdown) {
	o.ItemsPrice = b.Items
	o.ShippingPrice = b.Shipping
	o.TaxPrice = b.Tax
	o.TotalPrice = b.Total
}

// MarkPaid records a successful payment. Callers persist through the repository's conditional update.
func (o *Order) MarkPaid(at time.Time, res PaymentResult) {
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &res
}
