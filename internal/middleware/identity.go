package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRoles  = "roles"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Roles returns the authenticated user's roles, or nil.
func Roles(c echo.Context) []model.Role {
	roles, _ := c.Get(ctxRoles).([]model.Role)
	return roles
}

// identityKey identifies the caller for rate limiting; anonymous
// callers share "anon".
func identityKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

func errorBody(code, msg string) echo.Map {
	return echo.Map{"error": msg, "code": code}
}
