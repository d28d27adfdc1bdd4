package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	handlers "github.com/oksasatya/go-ddd-storefront/internal/interface/http"
	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
)

type UploadModule struct {
	Handler  *handlers.UploadHandler
	Accounts *application.AccountService
}

func NewUploadModule(h *handlers.UploadHandler, accounts *application.AccountService) *UploadModule {
	return &UploadModule{Handler: h, Accounts: accounts}
}

func (m *UploadModule) Register(rg *gin.RouterGroup) {
	rg.POST("/upload", middleware.Protect(m.Accounts), middleware.Admin(), m.Handler.Upload)
}
