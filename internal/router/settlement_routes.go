package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// RegisterSettlements registers organizer payouts, the admin review
// workflow and the settlement discussion.
func RegisterSettlements(v1 *echo.Group, h *handler.SettlementHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	organizer := middleware.RequireRole(model.RoleOrganizer)
	staff := middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin)

	g := v1.Group("/settlements", auth)
	g.GET("/events/:eventId/revenue", h.Revenue, staff)
	g.GET("/events/:eventId", h.ForEvent, staff)
	g.POST("/events/:eventId/request", h.Request, organizer)
	g.GET("/me", h.Mine, organizer)

	g.GET("/:id/comments", h.Comments, staff)
	g.POST("/:id/comments", h.PostComment, staff)
	g.POST("/:id/comment", h.PostComment, staff)

	admin := g.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/pending", h.Pending)
	admin.GET("/:id", h.AdminGet)
	admin.PUT("/:id", h.Adjust)
	admin.POST("/:id/review", h.Review())
	admin.POST("/:id/approve", h.Approve())
	admin.POST("/:id/reject", h.Reject())
	admin.POST("/:id/paid", h.Paid())

	payouts := v1.Group("/payouts", auth, organizer)
	payouts.GET("/me", h.Mine)
	payouts.POST("/request", h.Request)
}
