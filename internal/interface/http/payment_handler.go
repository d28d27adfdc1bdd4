package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/payment"
	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/response"
)

// maxWebhookBytes bounds the raw body read for signature verification.
const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	Payments *application.PaymentService
	Logger   *logrus.Logger
}

func NewPaymentHandler(payments *application.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Logger: logger}
}

type checkoutSessionRequest struct {
	OrderItems      []orderLine `json:"orderItems" binding:"required,min=1,dive"`
	ShippingAddress shippingDTO `json:"shippingAddress" binding:"required"`
}

// payOrderRequest carries raw card data. It is passed to the provider and dropped;
// never log or echo it.
type payOrderRequest struct {
	CardHolderName string `json:"cardHolderName" binding:"required"`
	CardNumber     string `json:"cardNumber" binding:"required"`
	ExpireMonth    string `json:"expireMonth" binding:"required,len=2,numeric"`
	ExpireYear     string `json:"expireYear" binding:"required,numeric"`
	CVC            string `json:"cvc" binding:"required,cvc"`
}

// CreateCheckoutSession POST /api/orders/create-checkout-session
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	handle, err := h.Payments.CreateCheckoutSession(c.Request.Context(), principal(c), application.CheckoutInput{
		Items:    toLineRequests(req.OrderItems),
		Shipping: req.ShippingAddress.toEntity(),
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"sessionId":    handle.SessionID,
		"clientSecret": handle.ClientSecret,
	}, "checkout session created", nil)
}

// SessionStatus GET /api/orders/session-status?session_id=
func (h *PaymentHandler) SessionStatus(c *gin.Context) {
	res, err := h.Payments.SessionStatus(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	data := gin.H{"status": res.Status, "customer_email": res.PayerEmail}
	if res.OrderID != "" {
		data["orderId"] = res.OrderID
	}
	response.Success(c, http.StatusOK, data, "session status", nil)
}

// Webhook POST /api/orders/webhook. The body is verified as raw bytes before any parsing.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		response.Fail(c, apperror.InvalidInput("could not read webhook body"))
		return
	}
	o, err := h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	data := gin.H{"received": true}
	if o != nil {
		data["orderId"] = o.ID
	}
	response.Success(c, http.StatusOK, data, "webhook processed", nil)
}

// Pay PUT /api/orders/:id/pay charges a card for an existing order.
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req payOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	card := payment.Card{
		HolderName:  req.CardHolderName,
		Number:      req.CardNumber,
		ExpireMonth: req.ExpireMonth,
		ExpireYear:  req.ExpireYear,
		CVC:         req.CVC,
	}
	o, err := h.Payments.PayDirect(c.Request.Context(), principal(c), c.Param("id"), card, middleware.ClientIP(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toOrderDTO(o), "order paid", nil)
}
