package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

// ContextUserKey is the gin context key storing the signed-in operator.
const ContextUserKey = "currentUser"

// SessionSource yields the signed-in operator.
type SessionSource interface {
	CurrentUser() (*models.User, error)
}

// Session blocks every request while no operator is signed in. The
// unauthorized answer carries the login redirect.
func Session(auth SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.CurrentUser()
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the operator stored by Session.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
