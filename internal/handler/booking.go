package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/service"
)

// BookingHandler serves the attendee booking and payment endpoints.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(s *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: s}
}

type bookingResp struct {
	model.BookingView
	Actions domain.Affordances `json:"actions"`
}

func (h *BookingHandler) view(v model.BookingView) bookingResp {
	return bookingResp{BookingView: v, Actions: h.Bookings.Affordances(v.Booking)}
}

func (h *BookingHandler) single(b model.Booking) bookingResp {
	return h.view(model.BookingView{Booking: b, DisplayStatus: b.Status})
}

type createBookingReq struct {
	EventID  uint64 `json:"eventId"`
	Quantity int    `json:"quantity"`
}

type bookingRef struct {
	BookingID uint64 `json:"bookingId"`
}

// Create books tickets for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil || req.EventID == 0 {
		return badRequest(c, "eventId and quantity are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.CreateBooking(ctx, a.ID, req.EventID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, h.single(b))
}

// CreateOrder issues a payment order for a pending booking.
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req bookingRef
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return badRequest(c, "bookingId required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	order, err := h.Bookings.CreatePaymentOrder(ctx, a.ID, req.BookingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// VerifyPayment confirms a booking against the widget's payment proof.
func (h *BookingHandler) VerifyPayment(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var proof model.PaymentProof
	if err := c.Bind(&proof); err != nil || proof.BookingID == 0 {
		return badRequest(c, "bookingId and payment proof are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.VerifyPayment(ctx, a.ID, proof)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.single(b))
}

// Cancel withdraws a pending booking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req bookingRef
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return badRequest(c, "bookingId required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.CancelBooking(ctx, a.ID, req.BookingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.single(b))
}

// Mine lists the caller's bookings with display status and actions.
func (h *BookingHandler) Mine(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	views, err := h.Bookings.ListMyBookings(ctx, a.ID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingResp, 0, len(views))
	for _, v := range views {
		out = append(out, h.view(v))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one of the caller's bookings.
func (h *BookingHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Bookings.GetBooking(ctx, a.ID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.view(v))
}

// TicketQR returns the entry QR code as a data URL, or as raw PNG when
// format=png.
func (h *BookingHandler) TicketQR(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	png, err := h.Bookings.TicketQR(ctx, a.ID, id)
	if err != nil {
		return writeError(c, err)
	}
	if c.QueryParam("format") == "png" {
		return c.Blob(http.StatusOK, "image/png", png)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bookingId": id,
		"qr":        "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}
