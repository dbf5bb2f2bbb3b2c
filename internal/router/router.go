// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Auth        *handler.AuthHandler
	Events      *handler.EventHandler
	Bookings    *handler.BookingHandler
	Settlements *handler.SettlementHandler
	Analytics   *handler.AnalyticsHandler
	DB          handler.Pinger
}

// Options tune route registration.  Cache fronts the public event reads
// and may be nil.
type Options struct {
	JWTSecret string
	Cache     echo.MiddlewareFunc
}

// Register mounts the operational endpoints at the root and the API under /v1.
func Register(e *echo.Echo, h Handlers, o Options) {
	RegisterRoutes(e, h.DB)

	v1 := e.Group("/v1")
	RegisterAuth(v1, h.Auth, o.JWTSecret)
	RegisterEvents(v1, h.Events, o.JWTSecret, o.Cache)
	RegisterBookings(v1, h.Bookings, o.JWTSecret)
	RegisterSettlements(v1, h.Settlements, o.JWTSecret)
	RegisterAdmin(v1, h.Auth, h.Analytics, o.JWTSecret)
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the token endpoints, the profile and the
// organizer request.  Register, login, refresh and logout need no
// session; the rest run behind JWTAuth.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := v1.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := middleware.JWTAuth(jwtSecret)
	v1.GET("/me", a.Me, auth)
	g.GET("/me", a.Me, auth)
	g.POST("/request-organizer", a.RequestOrganizer, auth, middleware.RequireRole(model.RoleAttendee))
}

// RegisterAdmin registers the admin-only organizer approval and
// analytics endpoints.
func RegisterAdmin(v1 *echo.Group, a *handler.AuthHandler, an *handler.AnalyticsHandler, jwtSecret string) {
	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin)}

	v1.GET("/auth/organizer-requests", a.OrganizerRequests, admin...)
	v1.POST("/auth/approve-organizer", a.ApproveOrganizer, admin...)

	g := v1.Group("/admin", admin...)
	g.GET("/analytics", an.Summary)
	g.GET("/analytics/:type", an.Details)
}
