package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller's id
// and roles in the echo context for UserID and Roles.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, errorBody("unauthenticated", "missing bearer token"))
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorBody("unauthenticated", "invalid token"))
			}
			uid, _ := claims.UserID()
			c.Set(ctxUserID, uid)
			c.Set(ctxRoles, claims.RoleSet())
			return next(c)
		}
	}
}
