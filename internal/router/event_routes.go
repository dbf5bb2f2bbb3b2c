package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// RegisterEvents registers the public catalogue and the organizer's
// event management.  Catalogue reads go through cache when one is set.
func RegisterEvents(v1 *echo.Group, h *handler.EventHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	var public []echo.MiddlewareFunc
	if cache != nil {
		public = append(public, cache)
	}
	v1.GET("/events", h.List, public...)
	v1.GET("/events/:id", h.Get, public...)

	publisher := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin),
	}
	v1.POST("/events", h.Create, publisher...)
	v1.PUT("/events/:id", h.Update, publisher...)
	v1.DELETE("/events/:id", h.Cancel, publisher...)
	v1.GET("/organizer/events", h.Mine, publisher...)
}
