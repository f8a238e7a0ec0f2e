package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/service/auth"
	"github.com/medbook/booking-api/internal/service/user"
	"github.com/medbook/booking-api/pkg/httputil"
)

const ContextCurrentUser = "currentUser"

type AuthMiddleware struct {
	authSvc *auth.Service
	userSvc *user.Service
}

func NewAuthMiddleware(authSvc *auth.Service, userSvc *user.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authSvc: authSvc,
		userSvc: userSvc,
	}
}

// Authenticate verifies the bearer token and sets the current user in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
				Status:  "error",
				Message: "missing or malformed authorization header",
			})
			return
		}

		claims, err := m.authSvc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
				Status:  "error",
				Message: "invalid token",
			})
			return
		}

		currentUser, err := m.userSvc.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
				Status:  "error",
				Message: "invalid token",
			})
			return
		}

		c.Set(ContextCurrentUser, currentUser)
		c.Next()
	}
}

// RequireRole rejects requests whose authenticated user lacks the role
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUser := CurrentUser(c)
		if currentUser == nil || currentUser.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, httputil.Response{
				Status:  "error",
				Message: "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Authenticate, or nil
func CurrentUser(c *gin.Context) *model.User {
	v, exists := c.Get(ContextCurrentUser)
	if !exists {
		return nil
	}
	u, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return u
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
