package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

const (
	authPath       = "/payment/auth"
	dateLayout     = "2006-01-02 15:04:05"
	defaultCity    = "Istanbul"
	defaultIP      = "127.0.0.1"
	basketCategory = "General"
	maxResponse    = 1 << 20
)

type Config struct {
	APIKey         string
	SecretKey      string
	BaseURL        string
	IdentityNumber string
	Timeout        time.Duration
}

// Gateway charges cards directly through the iyzico payment/auth endpoint.
type Gateway struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
	random func() string
}

func NewGateway(cfg Config) *Gateway {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	g := &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
	g.random = g.randomKey
	return g
}

// randomKey is the per-request nonce mixed into the signature.
func (g *Gateway) randomKey() string {
	suffix, err := helpers.GenOTPCode()
	if err != nil {
		suffix = "000000"
	}
	return strconv.FormatInt(g.now().UnixMilli(), 10) + suffix
}

func (g *Gateway) Mode() payment.Mode { return payment.ModeDirect }

type address struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode"`
}

type buyer struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	LastLoginDate       string `json:"lastLoginDate"`
	RegistrationDate    string `json:"registrationDate"`
	RegistrationAddress string `json:"registrationAddress"`
	IP                  string `json:"ip"`
	City                string `json:"city"`
	Country             string `json:"country"`
	ZipCode             string `json:"zipCode"`
}

type card struct {
	CardHolderName string `json:"cardHolderName"`
	CardNumber     string `json:"cardNumber"`
	ExpireMonth    string `json:"expireMonth"`
	ExpireYear     string `json:"expireYear"`
	CVC            string `json:"cvc"`
	RegisterCard   int    `json:"registerCard"`
}

type basketItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

type paymentRequest struct {
	Locale          string       `json:"locale"`
	ConversationID  string       `json:"conversationId"`
	Price           string       `json:"price"`
	PaidPrice       string       `json:"paidPrice"`
	Currency        string       `json:"currency"`
	Installment     int          `json:"installment"`
	BasketID        string       `json:"basketId"`
	PaymentChannel  string       `json:"paymentChannel"`
	PaymentGroup    string       `json:"paymentGroup"`
	PaymentCard     card         `json:"paymentCard"`
	Buyer           buyer        `json:"buyer"`
	ShippingAddress address      `json:"shippingAddress"`
	BillingAddress  address      `json:"billingAddress"`
	BasketItems     []basketItem `json:"basketItems"`
}

type paymentResponse struct {
	Status         string `json:"status"`
	PaymentID      string `json:"paymentId"`
	ConversationID string `json:"conversationId"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
}

// splitName gives iyzico the name/surname pair it requires.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, " ")
	if i <= 0 {
		return full, full
	}
	return full[:i], full[i+1:]
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func (g *Gateway) buildRequest(in payment.Intent) paymentRequest {
	name, surname := splitName(in.Buyer.Name)
	addr := address{
		ContactName: in.Buyer.Name,
		City:        orDefault(in.Shipping.City, defaultCity),
		Country:     in.Shipping.Country,
		Address:     in.Shipping.Address,
		ZipCode:     in.Shipping.PostalCode,
	}
	items := make([]basketItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, basketItem{
			ID:        it.ProductID,
			Name:      it.Name,
			Category1: basketCategory,
			ItemType:  "PHYSICAL",
			Price:     it.Subtotal().StringFixed(2),
		})
	}
	c := in.Card
	return paymentRequest{
		Locale:         "en",
		ConversationID: in.OrderID,
		Price:          in.Prices.Items.StringFixed(2),
		PaidPrice:      in.Prices.Total.StringFixed(2),
		Currency:       strings.ToUpper(in.Currency),
		Installment:    1,
		BasketID:       in.OrderID,
		PaymentChannel: "WEB",
		PaymentGroup:   "PRODUCT",
		PaymentCard: card{
			CardHolderName: c.HolderName,
			CardNumber:     helpers.NormalizePAN(c.Number),
			ExpireMonth:    c.ExpireMonth,
			ExpireYear:     c.ExpireYear,
			CVC:            c.CVC,
		},
		Buyer: buyer{
			ID:                  in.Buyer.ID,
			Name:                name,
			Surname:             surname,
			Email:               in.Buyer.Email,
			IdentityNumber:      g.cfg.IdentityNumber,
			LastLoginDate:       g.now().UTC().Format(dateLayout),
			RegistrationDate:    in.Buyer.RegisteredAt.UTC().Format(dateLayout),
			RegistrationAddress: in.Shipping.Address,
			IP:                  orDefault(in.Buyer.IP, defaultIP),
			City:                addr.City,
			Country:             addr.Country,
			ZipCode:             addr.ZipCode,
		},
		ShippingAddress: addr,
		BillingAddress:  addr,
		BasketItems:     items,
	}
}

// authorization builds the IYZWSv2 header for body sent to path.
func (g *Gateway) authorization(randomKey, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.SecretKey))
	mac.Write([]byte(randomKey + path))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))
	raw := "apiKey:" + g.cfg.APIKey + "&randomKey:" + randomKey + "&signature:" + signature
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// CreateIntent submits the charge. The provider's raw answer is returned in the
// handle for Confirm; the card never leaves this call except in the request body.
func (g *Gateway) CreateIntent(ctx context.Context, in payment.Intent) (*payment.Handle, error) {
	if in.Card == nil {
		return nil, fmt.Errorf("iyzico: card is required")
	}
	body, err := json.Marshal(g.buildRequest(in))
	if err != nil {
		return nil, err
	}
	rnd := g.random()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", g.authorization(rnd, authPath, body))
	req.Header.Set("x-iyzi-rnd", rnd)

	res, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponse))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("iyzico: %s", res.Status)
	}
	return &payment.Handle{Payload: raw}, nil
}

// Confirm reads the provider's answer to CreateIntent.
func (g *Gateway) Confirm(_ context.Context, ev payment.Event) (*payment.Confirmation, error) {
	var res paymentResponse
	if err := json.Unmarshal(ev.Payload, &res); err != nil {
		return nil, fmt.Errorf("iyzico: decode response: %w", err)
	}
	conf := &payment.Confirmation{
		Relevant:      true,
		Success:       res.Status == "success" && res.PaymentID != "",
		TransactionID: res.PaymentID,
		Status:        res.Status,
	}
	if !conf.Success {
		conf.FailureMessage = res.ErrorMessage
	}
	return conf, nil
}

var _ payment.Gateway = (*Gateway)(nil)
