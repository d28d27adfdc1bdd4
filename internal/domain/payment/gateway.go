// Package payment describes payment providers as interchangeable strategies.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/pricing"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

type Mode string

const (
	// ModeHosted collects card data on the provider's page and reports back by webhook or polling.
	ModeHosted Mode = "hosted"
	// ModeDirect receives card data from the client and charges synchronously.
	ModeDirect Mode = "direct"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSessionNotFound  = errors.New("checkout session not found")
)

// Card is raw card data. It is only ever held in memory for a single provider call;
// its String form is masked so it cannot leak through logs or %v.
type Card struct {
	HolderName  string
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVC         string
}

func (c Card) String() string   { return fmt.Sprintf("Card{%s}", helpers.MaskPAN(c.Number)) }
func (c Card) GoString() string { return c.String() }

type Buyer struct {
	ID           string
	Name         string
	Email        string
	IP           string
	RegisteredAt time.Time
}

// Intent is everything a provider needs to start a payment.
type Intent struct {
	OrderID  string
	Items    []entity.LineItem
	Shipping entity.ShippingAddress
	Prices   pricing.Breakdown
	Currency string
	Buyer    Buyer
	// Card is set for ModeDirect only.
	Card *Card
	// Metadata travels with a hosted session and comes back on completion.
	Metadata map[string]string
}

// Handle is what CreateIntent returns: a session for hosted providers, the raw
// provider response for direct ones.
type Handle struct {
	SessionID    string
	ClientSecret string
	Payload      []byte
}

// Event is an inbound provider message: a webhook body with its signature
// header, or a direct provider response.
type Event struct {
	Payload   []byte
	Signature string
}

// Confirmation is the provider-neutral reading of an Event.
type Confirmation struct {
	EventID string
	// Relevant is false for event types that do not complete a payment.
	Relevant       bool
	SessionID      string
	Success        bool
	TransactionID  string
	Status         string
	PayerEmail     string
	FailureMessage string
	Metadata       map[string]string
}

type Gateway interface {
	Mode() Mode
	CreateIntent(ctx context.Context, in Intent) (*Handle, error)
	Confirm(ctx context.Context, ev Event) (*Confirmation, error)
}

const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"
)

type SessionStatus struct {
	SessionID     string
	Status        string
	Paid          bool
	PayerEmail    string
	TransactionID string
	Metadata      map[string]string
}

// SessionGateway is a hosted gateway that can also be polled.
type SessionGateway interface {
	Gateway
	SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
}
