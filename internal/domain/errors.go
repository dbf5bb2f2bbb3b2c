// Package domain holds the pure business rules of the marketplace: the
// error taxonomy, the booking status resolver, the settlement state
// machine and fee arithmetic, and the role policy.  Nothing here talks to
// storage or the network.
package domain

import "errors"

// Booking and payment errors.
var (
	ErrInventoryExhausted        = errors.New("inventory exhausted")
	ErrQuantityExceedsLimit      = errors.New("quantity exceeds per-user limit")
	ErrInvalidQuantity           = errors.New("invalid quantity")
	ErrEventClosed               = errors.New("event closed")
	ErrBookingExpired            = errors.New("booking expired")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
)

// Settlement errors.
var (
	ErrSettlementAlreadyExists = errors.New("settlement already exists")
	ErrSettlementLocked        = errors.New("settlement locked")
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrDiscussionLocked        = errors.New("discussion locked")
	ErrEventNotEnded           = errors.New("event has not ended")
	ErrConfirmationRequired    = errors.New("confirmation required")
	ErrInvalidFeePercent       = errors.New("invalid fee percent")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidMessage          = errors.New("invalid message")
)

// Lookup, access and transport errors.
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidInput        = errors.New("invalid input")
)
