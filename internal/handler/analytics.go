package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
)

// AnalyticsSource is the read side behind the admin dashboard.
type AnalyticsSource interface {
	Summary(ctx context.Context) (repository.Summary, error)
	RevenueByDate(ctx context.Context) (map[string]int64, error)
	RevenueByEvent(ctx context.Context) (map[string]int64, error)
	BookingDetails(ctx context.Context, limit int) ([]repository.BookingRow, error)
	EventDetails(ctx context.Context, limit int) ([]repository.EventRow, error)
	OrganizerDetails(ctx context.Context, limit int) ([]repository.OrganizerRow, error)
}

// AnalyticsHandler serves the admin dashboard.
type AnalyticsHandler struct {
	Source AnalyticsSource
}

func NewAnalyticsHandler(src AnalyticsSource) *AnalyticsHandler {
	return &AnalyticsHandler{Source: src}
}

const defaultDetailLimit = 100

// Summary returns the KPIs and revenue charts.
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	sum, err := h.Source.Summary(ctx)
	if err != nil {
		return writeError(c, err)
	}
	byDate, err := h.Source.RevenueByDate(ctx)
	if err != nil {
		return writeError(c, err)
	}
	byEvent, err := h.Source.RevenueByEvent(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary": sum,
		"charts": echo.Map{
			"revenueByDate":  byDate,
			"revenueByEvent": byEvent,
		},
	})
}

// Details returns the rows behind one KPI: bookings, events or organizers.
func (h *AnalyticsHandler) Details(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 || limit > 1000 {
		limit = defaultDetailLimit
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var rows any
	switch c.Param("type") {
	case "bookings":
		rows, err = h.Source.BookingDetails(ctx, limit)
	case "events":
		rows, err = h.Source.EventDetails(ctx, limit)
	case "organizers":
		rows, err = h.Source.OrganizerDetails(ctx, limit)
	default:
		return writeError(c, domain.ErrInvalidInput)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"type": c.Param("type"), "rows": rows})
}
