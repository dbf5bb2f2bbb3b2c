package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// RegisterBookings registers attendee endpoints under /v1/bookings.  All
// routes require a valid JWT and the attendee role; ownership of a
// booking is checked by the service.
func RegisterBookings(v1 *echo.Group, h *handler.BookingHandler, jwtSecret string) {
	g := v1.Group(
		"/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAttendee),
	)
	g.POST("", h.Create)
	g.POST("/create-order", h.CreateOrder)
	g.POST("/verify-payment", h.VerifyPayment)
	g.POST("/confirm-payment", h.VerifyPayment)
	g.POST("/cancel", h.Cancel)
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.GET("/:id/qr", h.TicketQR)
}
