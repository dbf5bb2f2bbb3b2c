package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
	"github.com/iliyamo/venuex-ticketing/internal/service"
)

// EventHandler serves the public catalogue and organizer event management.
type EventHandler struct {
	Events *service.EventService
	Cache  *middleware.CacheInvalidator
}

func NewEventHandler(s *service.EventService, cache *middleware.CacheInvalidator) *EventHandler {
	return &EventHandler{Events: s, Cache: cache}
}

type eventReq struct {
	Title             string              `json:"title"`
	Subtitle          string              `json:"subtitle"`
	Description       string              `json:"description"`
	Category          model.EventCategory `json:"category"`
	Tags              []string            `json:"tags"`
	CoverImage        string              `json:"coverImage"`
	Mode              model.EventMode     `json:"mode"`
	VenueName         string              `json:"venueName"`
	Address           string              `json:"address"`
	City              string              `json:"city"`
	State             string              `json:"state"`
	Country           string              `json:"country"`
	OnlineLink        string              `json:"onlineLink"`
	StartsAt          time.Time           `json:"startsAt"`
	EndsAt            time.Time           `json:"endsAt"`
	Timezone          string              `json:"timezone"`
	IsPaid            bool                `json:"isPaid"`
	TicketPrice       int64               `json:"ticketPrice"`
	TotalTickets      int                 `json:"totalTickets"`
	MaxTicketsPerUser int                 `json:"maxTicketsPerUser"`
}

func (r eventReq) event() model.Event {
	return model.Event{
		Title:             r.Title,
		Subtitle:          r.Subtitle,
		Description:       r.Description,
		Category:          r.Category,
		Tags:              r.Tags,
		CoverImage:        r.CoverImage,
		Mode:              model.EventMode(strings.ToLower(string(r.Mode))),
		VenueName:         r.VenueName,
		Address:           r.Address,
		City:              r.City,
		State:             r.State,
		Country:           r.Country,
		OnlineLink:        r.OnlineLink,
		StartsAt:          r.StartsAt,
		EndsAt:            r.EndsAt,
		Timezone:          r.Timezone,
		IsPaid:            r.IsPaid,
		TicketPrice:       r.TicketPrice,
		TotalTickets:      r.TotalTickets,
		MaxTicketsPerUser: r.MaxTicketsPerUser,
	}
}

func (h *EventHandler) purge(c echo.Context) {
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		logrus.WithError(err).Warn("event cache purge failed")
	}
}

// List searches published events by q, mode, category and city, ordered
// by sort (date, price or popular).  upcoming=false includes past events.
func (h *EventHandler) List(c echo.Context) error {
	f := repository.EventFilter{
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Mode:     model.EventMode(strings.ToLower(c.QueryParam("mode"))),
		Category: model.EventCategory(strings.ToLower(c.QueryParam("category"))),
		City:     strings.TrimSpace(c.QueryParam("city")),
		Sort:     repository.EventSort(strings.ToLower(c.QueryParam("sort"))),
		Upcoming: c.QueryParam("upcoming") != "false",
	}
	if f.Mode != "" && !f.Mode.Valid() {
		return badRequest(c, "mode must be online, offline or hybrid")
	}
	if f.Category != "" && !f.Category.Valid() {
		return badRequest(c, "unknown category")
	}
	if !f.Sort.Valid() {
		return badRequest(c, "sort must be date, price or popular")
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))

	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Events.Search(ctx, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Create publishes an event owned by the caller.
func (h *EventHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.Create(ctx, a, req.event())
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, e)
}

// Update edits an event of the caller.
func (h *EventHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.Update(ctx, a, id, req.event())
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, e)
}

// Cancel withdraws an event from sale.
func (h *EventHandler) Cancel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.Cancel(ctx, a, id)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, e)
}

// Mine lists the caller's events.
func (h *EventHandler) Mine(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	events, err := h.Events.ListMine(ctx, a)
	if err != nil {
		return writeError(c, err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, events)
}
