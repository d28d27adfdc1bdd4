package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	handlers "github.com/oksasatya/go-ddd-storefront/internal/interface/http"
	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
)

type ProductModule struct {
	Handler  *handlers.ProductHandler
	Accounts *application.AccountService
	RDB      *redis.Client
}

func NewProductModule(h *handlers.ProductHandler, accounts *application.AccountService, rdb *redis.Client) *ProductModule {
	return &ProductModule{Handler: h, Accounts: accounts, RDB: rdb}
}

func (m *ProductModule) Register(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	products.Use(middleware.RateLimit(m.RDB, 300, time.Minute, middleware.KeyByIP(), nil))

	products.GET("", m.Handler.List)
	products.GET("/top", m.Handler.Top)
	products.GET("/:id", m.Handler.Get)

	protect := middleware.Protect(m.Accounts)
	products.POST("/:id/reviews", protect, m.Handler.AddReview)

	admin := products.Group("")
	admin.Use(protect, middleware.Admin())
	{
		admin.POST("", m.Handler.Create)
		admin.PUT("/:id", m.Handler.Update)
		admin.DELETE("/:id", m.Handler.Delete)
	}
}
