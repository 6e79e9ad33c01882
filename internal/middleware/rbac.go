package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

// RequireRoles admits operators holding any of roles. It must run after
// Session.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !user.HasRole(roles...) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("el rol %s no puede realizar esta acción", user.Rol)))
			c.Abort()
			return
		}
		c.Next()
	}
}
