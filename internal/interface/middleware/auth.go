package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
	"github.com/oksasatya/go-ddd-storefront/pkg/response"
)

const (
	CtxPrincipalKey = "principal"
	CtxUserIDKey    = "userID"
)

// Protect resolves the session cookie to the current user and stores the
// principal in the Gin context. Missing, invalid, revoked or orphaned tokens get 401.
func Protect(accounts *application.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(helpers.SessionCookie)
		u, err := accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Fail(c, err)
			return
		}
		c.Set(CtxPrincipalKey, entity.NewPrincipal(u))
		c.Set(CtxUserIDKey, u.ID) // rate limit keys
		c.Next()
	}
}

// Admin must run after Protect.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			response.Fail(c, apperror.Unauthorized("not authorized, no token"))
			return
		}
		if !p.IsAdmin {
			response.Fail(c, apperror.Forbidden("not authorized as an admin"))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Protect.
func PrincipalFrom(c *gin.Context) (entity.Principal, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return entity.Principal{}, false
	}
	p, ok := v.(entity.Principal)
	return p, ok
}
