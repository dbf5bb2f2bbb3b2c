package model

import "time"

// BookingStatus is the persisted lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// Booking records a user's claim on a quantity of tickets for an
// event.  It aggregates the tickets taken in a single request and
// tracks payment progress.  Bookings for free events are created
// directly as confirmed; paid bookings start pending with an expiry.
//
// Fields:
//  ID                – primary key identifier.
//  EventID           – event being booked (not owned).
//  UserID            – attendee who created the booking.
//  Quantity          – number of tickets.
//  TotalAmount       – quantity × ticket price at booking time.
//  Status            – pending, confirmed, cancelled or expired.
//  ExpiresAt         – payment deadline; nil unless pending on a paid event.
//  ProviderOrderID   – last payment order issued for the booking.
//  ProviderPaymentID – payment that confirmed the booking.
//  ConfirmedAt       – when the booking became confirmed.
type Booking struct {
	ID                uint64        `json:"id"`                          // bookings.id
	EventID           uint64        `json:"eventId"`                     // bookings.event_id
	UserID            uint64        `json:"userId"`                      // bookings.user_id
	Quantity          int           `json:"quantity"`                    // bookings.quantity
	TotalAmount       int64         `json:"totalAmount"`                 // bookings.total_amount
	Status            BookingStatus `json:"status"`                      // bookings.status
	ExpiresAt         *time.Time    `json:"expiresAt,omitempty"`         // bookings.expires_at (nullable)
	ProviderOrderID   *string       `json:"providerOrderId,omitempty"`   // bookings.provider_order_id (nullable)
	ProviderPaymentID *string       `json:"providerPaymentId,omitempty"` // bookings.provider_payment_id (nullable)
	ConfirmedAt       *time.Time    `json:"confirmedAt,omitempty"`       // bookings.confirmed_at (nullable)
	CreatedAt         time.Time     `json:"createdAt"`                   // bookings.created_at
	UpdatedAt         time.Time     `json:"updatedAt"`                   // bookings.updated_at
}

// BookingView is a booking as shown to its owner: the stored record,
// the status it should be displayed with and a short event summary.
type BookingView struct {
	Booking
	DisplayStatus BookingStatus `json:"displayStatus"`
	Event         *EventSummary `json:"event,omitempty"`
}

// EventSummary is the subset of an event embedded in booking listings.
type EventSummary struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	Mode       EventMode `json:"mode"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Timezone   string    `json:"timezone"`
	OnlineLink string    `json:"onlineLink,omitempty"`
}

// PaymentOrder is the ephemeral order handed to the payment widget.
// It is not persisted beyond the provider order id remembered on the
// booking.
type PaymentOrder struct {
	BookingID uint64 `json:"bookingId"`
	OrderID   string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// PaymentProof is what the payment widget yields after the user pays.
// It is never trusted until the server has verified the signature.
type PaymentProof struct {
	BookingID         uint64 `json:"bookingId"`
	ProviderOrderID   string `json:"providerOrderId"`
	ProviderPaymentID string `json:"providerPaymentId"`
	ProviderSignature string `json:"providerSignature"`
}
