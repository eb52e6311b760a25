package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/site-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ContextUserID = "user_id" // uint64
	ContextRole   = "role"    // string
	ContextName   = "name"    // string
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject, role and name claims into the request
// context.  Handlers read them via c.Get("user_id"), c.Get("role") and
// c.Get("name").
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// ParseAccessToken already rejected a non-numeric subject.
			uid, _ := claims.UserID()
			c.Set(ContextUserID, uid)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextName, claims.Name)
			return next(c)
		}
	}
}
