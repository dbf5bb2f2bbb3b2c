package domain

import (
	"errors"
	"net/http"
)

// Fault pairs a sentinel error with its wire code and HTTP status.
type Fault struct {
	Err    error
	Code   string
	Status int
}

var faults = []Fault{
	{ErrInventoryExhausted, "inventory_exhausted", http.StatusConflict},
	{ErrQuantityExceedsLimit, "quantity_exceeds_limit", http.StatusUnprocessableEntity},
	{ErrInvalidQuantity, "invalid_quantity", http.StatusBadRequest},
	{ErrEventClosed, "event_closed", http.StatusConflict},
	{ErrBookingExpired, "booking_expired", http.StatusGone},
	{ErrPaymentVerificationFailed, "payment_verification_failed", http.StatusPaymentRequired},
	{ErrSettlementAlreadyExists, "settlement_already_exists", http.StatusConflict},
	{ErrSettlementLocked, "settlement_locked", http.StatusLocked},
	{ErrInvalidTransition, "invalid_transition", http.StatusConflict},
	{ErrDiscussionLocked, "discussion_locked", http.StatusLocked},
	{ErrEventNotEnded, "event_not_ended", http.StatusConflict},
	{ErrConfirmationRequired, "confirmation_required", http.StatusBadRequest},
	{ErrInvalidFeePercent, "invalid_fee_percent", http.StatusBadRequest},
	{ErrInvalidAmount, "invalid_amount", http.StatusBadRequest},
	{ErrInvalidMessage, "invalid_message", http.StatusBadRequest},
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{ErrEventNotFound, "event_not_found", http.StatusNotFound},
	{ErrBookingNotFound, "booking_not_found", http.StatusNotFound},
	{ErrSettlementNotFound, "settlement_not_found", http.StatusNotFound},
	{ErrUserNotFound, "user_not_found", http.StatusNotFound},
	{ErrForbidden, "forbidden", http.StatusForbidden},
	{ErrUnauthenticated, "unauthenticated", http.StatusUnauthorized},
	{ErrUpstreamUnavailable, "upstream_unavailable", http.StatusBadGateway},
}

// FaultOf finds the fault matching err.  ok is false for errors outside
// the taxonomy.
func FaultOf(err error) (Fault, bool) {
	for _, f := range faults {
		if errors.Is(err, f.Err) {
			return f, true
		}
	}
	return Fault{}, false
}

// ErrorForCode returns the sentinel registered under code, or nil.
func ErrorForCode(code string) error {
	for _, f := range faults {
		if f.Code == code {
			return f.Err
		}
	}
	return nil
}
