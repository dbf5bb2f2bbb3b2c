package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// RequireRole admits callers holding at least one of roles.  It expects
// JWTAuth to have run: without an identity the request fails with 401,
// with an identity but no matching role with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorBody("unauthenticated", "authentication required"))
			}
			if !domain.CanAccess(&model.User{ID: id, Roles: Roles(c)}, roles...) {
				return c.JSON(http.StatusForbidden, errorBody("forbidden", "forbidden"))
			}
			return next(c)
		}
	}
}
