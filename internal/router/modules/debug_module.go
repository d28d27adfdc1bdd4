package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
)

// DebugModule exposes the expvar counters to private networks only.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", middleware.Only(middleware.AllowPrivateIP()), gin.WrapH(expvar.Handler()))
}
