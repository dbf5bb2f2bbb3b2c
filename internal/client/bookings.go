package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// Booking is a booking as returned by the API, with the actions the
// server offers on it.
type Booking struct {
	model.BookingView
	Actions domain.Affordances `json:"actions"`
}

// EventPage is one page of the public catalogue.
type EventPage struct {
	Items    []model.Event `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// EventQuery filters ListEvents.  Zero values are omitted.
type EventQuery struct {
	Query       string
	Mode        model.EventMode
	Category    model.EventCategory
	City        string
	Sort        string // date, price or popular
	IncludePast bool
	Page        int
	PageSize    int
}

func (q EventQuery) encode() string {
	v := url.Values{}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.Mode != "" {
		v.Set("mode", string(q.Mode))
	}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.City != "" {
		v.Set("city", q.City)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.IncludePast {
		v.Set("upcoming", "false")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListEvents searches the public catalogue.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) (EventPage, error) {
	var page EventPage
	err := c.do(ctx, http.MethodGet, "/events"+q.encode(), nil, &page)
	return page, err
}

// Event fetches one event.  Availability is authoritative only as of
// this read.
func (c *Client) Event(ctx context.Context, id uint64) (model.Event, error) {
	var e model.Event
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d", id), nil, &e)
	return e, err
}

// CreateBooking reserves quantity tickets.
func (c *Client) CreateBooking(ctx context.Context, eventID uint64, quantity int) (Booking, error) {
	var b Booking
	err := c.do(ctx, http.MethodPost, "/bookings", map[string]any{"eventId": eventID, "quantity": quantity}, &b)
	return b, err
}

// CreatePaymentOrder asks the server for a payment order for a pending
// booking.
func (c *Client) CreatePaymentOrder(ctx context.Context, bookingID uint64) (model.PaymentOrder, error) {
	var o model.PaymentOrder
	err := c.do(ctx, http.MethodPost, "/bookings/create-order", map[string]uint64{"bookingId": bookingID}, &o)
	return o, err
}

// VerifyPayment submits a payment proof.  Submitting the same proof
// again is safe.
func (c *Client) VerifyPayment(ctx context.Context, proof model.PaymentProof) (Booking, error) {
	var b Booking
	err := c.do(ctx, http.MethodPost, "/bookings/verify-payment", proof, &b)
	return b, err
}

// CancelBooking withdraws a pending booking.
func (c *Client) CancelBooking(ctx context.Context, bookingID uint64) (Booking, error) {
	var b Booking
	err := c.do(ctx, http.MethodPost, "/bookings/cancel", map[string]uint64{"bookingId": bookingID}, &b)
	return b, err
}

// MyBookings lists the caller's bookings.
func (c *Client) MyBookings(ctx context.Context) ([]Booking, error) {
	var out []Booking
	err := c.do(ctx, http.MethodGet, "/bookings/me", nil, &out)
	return out, err
}

// GetBooking fetches one of the caller's bookings.
func (c *Client) GetBooking(ctx context.Context, bookingID uint64) (Booking, error) {
	var b Booking
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/bookings/%d", bookingID), nil, &b)
	return b, err
}

// TicketQR returns the entry QR code of a confirmed booking as a data URL.
func (c *Client) TicketQR(ctx context.Context, bookingID uint64) (string, error) {
	var out struct {
		QR string `json:"qr"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/bookings/%d/qr", bookingID), nil, &out)
	return out.QR, err
}

// Resolution is a booking with the status it should be shown with now.
type Resolution struct {
	Booking Booking
	Status  model.BookingStatus
	Actions domain.Affordances
}

// ResolveStatus re-reads a booking and resolves its display status
// against the local clock, so a pending booking past its deadline reads
// as expired even before the server has swept it.
func (c *Client) ResolveStatus(ctx context.Context, bookingID uint64) (Resolution, error) {
	b, err := c.GetBooking(ctx, bookingID)
	if err != nil {
		return Resolution{}, err
	}
	now := c.clock.Now()
	return Resolution{
		Booking: b,
		Status:  domain.ResolveBookingStatus(b.Booking, now),
		Actions: domain.BookingAffordances(b.Booking, now),
	}, nil
}
