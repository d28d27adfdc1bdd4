package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	handlers "github.com/oksasatya/go-ddd-storefront/internal/interface/http"
	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
)

// UserModule wires account routes under /users.
// Public: register, verify-email, auth, logout, forgot-password, reset-password
// Protected: profile; admin: user management
type UserModule struct {
	Handler  *handlers.UserHandler
	Accounts *application.AccountService
	RDB      *redis.Client
}

func NewUserModule(h *handlers.UserHandler, accounts *application.AccountService, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Accounts: accounts, RDB: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIP(), nil)
	codeLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	confirmLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	users := rg.Group("/users")
	users.POST("", codeLimiter, m.Handler.Register)
	users.POST("/verify-email", confirmLimiter, m.Handler.VerifyEmail)
	users.POST("/auth", loginLimiter, m.Handler.Login)
	users.POST("/logout", m.Handler.Logout)
	users.POST("/forgot-password", codeLimiter, m.Handler.ForgotPassword)
	users.POST("/reset-password", confirmLimiter, m.Handler.ResetPassword)

	auth := users.Group("")
	auth.Use(
		middleware.Protect(m.Accounts),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile", m.Handler.UpdateProfile)
	}

	admin := users.Group("")
	admin.Use(middleware.Protect(m.Accounts), middleware.Admin())
	{
		admin.GET("", m.Handler.ListUsers)
		admin.GET("/:id", m.Handler.GetUser)
		admin.PUT("/:id", m.Handler.UpdateUser)
		admin.DELETE("/:id", m.Handler.DeleteUser)
	}
}
