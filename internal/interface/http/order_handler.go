package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	"github.com/oksasatya/go-ddd-storefront/pkg/response"
)

type OrderHandler struct {
	Orders *application.OrderService
	Logger *logrus.Logger
}

func NewOrderHandler(orders *application.OrderService, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{Orders: orders, Logger: logger}
}

// orderLine is a cart line from the client; any price it carries is ignored.
type orderLine struct {
	ID       string `json:"_id" binding:"required"`
	Quantity int    `json:"qty" binding:"required,gt=0"`
}

type createOrderRequest struct {
	OrderItems      []orderLine `json:"orderItems" binding:"required,min=1,dive"`
	ShippingAddress shippingDTO `json:"shippingAddress" binding:"required"`
	PaymentMethod   string      `json:"paymentMethod"`
}

type quoteRequest struct {
	OrderItems []orderLine `json:"orderItems" binding:"required,min=1,dive"`
}

func toLineRequests(lines []orderLine) []application.LineRequest {
	out := make([]application.LineRequest, 0, len(lines))
	for _, l := range lines {
		out = append(out, application.LineRequest{ProductID: l.ID, Quantity: l.Quantity})
	}
	return out
}

// Quote POST /api/orders/quote prices a cart the way the order will be priced.
func (h *OrderHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if !bindJSON(c, &req) {
		return
	}
	items, prices, err := h.Orders.Quote(c.Request.Context(), toLineRequests(req.OrderItems))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"orderItems":    toLineItemDTOs(items),
		"itemsPrice":    money(prices.Items),
		"shippingPrice": money(prices.Shipping),
		"taxPrice":      money(prices.Tax),
		"totalPrice":    money(prices.Total),
	}, "quote", nil)
}

// Create POST /api/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.Orders.Create(c.Request.Context(), principal(c), application.CreateOrderInput{
		Items:         toLineRequests(req.OrderItems),
		Shipping:      req.ShippingAddress.toEntity(),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toOrderDTO(o), "order created", nil)
}

func (h *OrderHandler) Mine(c *gin.Context) {
	orders, err := h.Orders.ListMine(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toOrderDTOs(orders), "orders", nil)
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.Orders.ListAll(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toOrderDTOs(orders), "orders", nil)
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.Orders.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toOrderDTO(o), "order", nil)
}

// BySession GET /api/orders/order-by-session-id?session_id=
func (h *OrderHandler) BySession(c *gin.Context) {
	o, err := h.Orders.GetByCheckoutSession(c.Request.Context(), principal(c), c.Query("session_id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toOrderDTO(o), "order", nil)
}

// Deliver PUT /api/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	o, err := h.Orders.MarkDelivered(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toOrderDTO(o), "order delivered", nil)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.Orders.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "order deleted", nil)
}
