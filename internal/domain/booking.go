package domain

import (
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// ResolveBookingStatus returns the status a booking should be treated as
// at instant now.  A pending booking whose payment window has closed is
// expired whatever the stored status says.
func ResolveBookingStatus(b model.Booking, now time.Time) model.BookingStatus {
	if b.Status == model.BookingPending && b.ExpiresAt != nil && now.After(*b.ExpiresAt) {
		return model.BookingExpired
	}
	return b.Status
}

// Affordances are the actions a booking's owner may take on it.
type Affordances struct {
	CanPay     bool `json:"canPay"`
	CanCancel  bool `json:"canCancel"`
	ShowTicket bool `json:"showTicket"`
}

// BookingAffordances derives the owner's available actions from the
// resolved status.
func BookingAffordances(b model.Booking, now time.Time) Affordances {
	switch ResolveBookingStatus(b, now) {
	case model.BookingPending:
		return Affordances{CanPay: true, CanCancel: true}
	case model.BookingConfirmed:
		return Affordances{ShowTicket: true}
	}
	return Affordances{}
}

// CheckBooking applies the booking preconditions in order: a positive
// quantity, the per-user limit, the event still taking bookings and
// enough stock.
func CheckBooking(e model.Event, quantity int, now time.Time) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if e.MaxTicketsPerUser > 0 && quantity > e.MaxTicketsPerUser {
		return ErrQuantityExceedsLimit
	}
	if err := Bookable(e, now); err != nil {
		return err
	}
	if e.AvailableTickets == 0 || quantity > e.AvailableTickets {
		return ErrInventoryExhausted
	}
	return nil
}

// Bookable reports ErrEventClosed when the event no longer takes bookings.
func Bookable(e model.Event, now time.Time) error {
	if e.Status == model.EventCancelled || e.HasEnded(now) {
		return ErrEventClosed
	}
	return nil
}
