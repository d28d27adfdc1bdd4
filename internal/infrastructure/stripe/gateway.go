package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/pricing"
)

const (
	eventSessionCompleted    = "checkout.session.completed"
	eventAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	ReturnURL     string
	Timeout       time.Duration
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL string
}

// Gateway opens Stripe embedded checkout sessions and verifies their webhooks.
type Gateway struct {
	api           *client.API
	webhookSecret string
	returnURL     string
}

func NewGateway(cfg Config) *Gateway {
	bc := &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
		MaxNetworkRetries: stripeapi.Int64(1),
	}
	if cfg.BaseURL != "" {
		bc.URL = stripeapi.String(cfg.BaseURL)
	}
	backends := &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, bc),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, bc),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, bc),
	}
	return &Gateway{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		returnURL:     cfg.ReturnURL,
	}
}

func (g *Gateway) Mode() payment.Mode { return payment.ModeHosted }

func lineItem(name, currency string, unit int64, qty int64, image string) *stripeapi.CheckoutSessionLineItemParams {
	product := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripeapi.String(name)}
	if strings.HasPrefix(image, "https://") || strings.HasPrefix(image, "http://") {
		product.Images = []*string{stripeapi.String(image)}
	}
	return &stripeapi.CheckoutSessionLineItemParams{
		PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripeapi.String(currency),
			ProductData: product,
			UnitAmount:  stripeapi.Int64(unit),
		},
		Quantity: stripeapi.Int64(qty),
	}
}

// CreateIntent opens an embedded checkout session charging exactly the quoted total.
// Shipping and tax are separate lines so the session total equals Prices.Total.
func (g *Gateway) CreateIntent(ctx context.Context, in payment.Intent) (*payment.Handle, error) {
	lines := make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(in.Items)+2)
	for _, it := range in.Items {
		lines = append(lines, lineItem(it.Name, in.Currency, pricing.Cents(it.Price), int64(it.Quantity), it.Image))
	}
	if in.Prices.Shipping.IsPositive() {
		lines = append(lines, lineItem("Shipping", in.Currency, pricing.Cents(in.Prices.Shipping), 1, ""))
	}
	if in.Prices.Tax.IsPositive() {
		lines = append(lines, lineItem("Tax", in.Currency, pricing.Cents(in.Prices.Tax), 1, ""))
	}

	params := &stripeapi.CheckoutSessionParams{
		UIMode:            stripeapi.String(string(stripeapi.CheckoutSessionUIModeEmbedded)),
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		ReturnURL:         stripeapi.String(g.returnURL),
		ClientReferenceID: stripeapi.String(in.Buyer.ID),
		LineItems:         lines,
		Metadata:          in.Metadata,
	}
	if in.Buyer.Email != "" {
		params.CustomerEmail = stripeapi.String(in.Buyer.Email)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &payment.Handle{SessionID: s.ID, ClientSecret: s.ClientSecret}, nil
}

// Confirm verifies the Stripe-Signature header and extracts the session outcome.
func (g *Gateway) Confirm(_ context.Context, ev payment.Event) (*payment.Confirmation, error) {
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", payment.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(ev.Payload, ev.Signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	conf := &payment.Confirmation{EventID: event.ID}
	switch string(event.Type) {
	case eventSessionCompleted, eventAsyncPaymentSuccess:
	default:
		return conf, nil
	}
	if event.Data == nil {
		return nil, errors.New("stripe event has no data")
	}
	var s stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	st := sessionStatus(&s)
	conf.Relevant = true
	conf.SessionID = s.ID
	conf.Success = st.Paid
	conf.TransactionID = st.TransactionID
	conf.Status = string(s.PaymentStatus)
	conf.PayerEmail = st.PayerEmail
	conf.Metadata = s.Metadata
	return conf, nil
}

// SessionStatus fetches a session so the return page can poll for completion.
func (g *Gateway) SessionStatus(ctx context.Context, sessionID string) (*payment.SessionStatus, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var serr *stripeapi.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return nil, payment.ErrSessionNotFound
		}
		return nil, err
	}
	return sessionStatus(s), nil
}

func sessionStatus(s *stripeapi.CheckoutSession) *payment.SessionStatus {
	st := &payment.SessionStatus{
		SessionID: s.ID,
		Status:    string(s.Status),
		Paid:      s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid,
		Metadata:  s.Metadata,
	}
	if s.CustomerDetails != nil {
		st.PayerEmail = s.CustomerDetails.Email
	}
	if st.PayerEmail == "" {
		st.PayerEmail = s.CustomerEmail
	}
	if s.PaymentIntent != nil {
		st.TransactionID = s.PaymentIntent.ID
	}
	return st
}

var _ payment.SessionGateway = (*Gateway)(nil)
