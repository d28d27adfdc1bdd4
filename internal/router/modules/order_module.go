package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	handlers "github.com/oksasatya/go-ddd-storefront/internal/interface/http"
	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
)

// OrderModule wires order and payment routes under /orders.
// The webhook is public and authenticated by its signature only.
type OrderModule struct {
	Orders   *handlers.OrderHandler
	Payments *handlers.PaymentHandler
	Accounts *application.AccountService
	RDB      *redis.Client
}

func NewOrderModule(orders *handlers.OrderHandler, payments *handlers.PaymentHandler, accounts *application.AccountService, rdb *redis.Client) *OrderModule {
	return &OrderModule{Orders: orders, Payments: payments, Accounts: accounts, RDB: rdb}
}

func (m *OrderModule) Register(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("/webhook", m.Payments.Webhook)
	orders.GET("/session-status", middleware.RateLimit(m.RDB, 60, time.Minute, middleware.KeyByIP(), nil), m.Payments.SessionStatus)
	orders.POST("/quote", middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), nil), m.Orders.Quote)

	auth := orders.Group("")
	auth.Use(
		middleware.Protect(m.Accounts),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.POST("", m.Orders.Create)
		auth.GET("/mine", m.Orders.Mine)
		auth.GET("/order-by-session-id", m.Orders.BySession)
		auth.POST("/create-checkout-session", m.Payments.CreateCheckoutSession)
		auth.GET("/:id", m.Orders.Get)
		auth.PUT("/:id/pay", middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByUserID(), nil), m.Payments.Pay)
	}

	admin := orders.Group("")
	admin.Use(middleware.Protect(m.Accounts), middleware.Admin())
	{
		admin.GET("", m.Orders.List)
		admin.PUT("/:id/deliver", m.Orders.Deliver)
		admin.DELETE("/:id", m.Orders.Delete)
	}
}
