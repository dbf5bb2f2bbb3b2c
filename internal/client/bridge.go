package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// ErrPaymentAbandoned is returned by a PaymentWidget when the user closes
// it without paying.  The booking stays pending and a fresh order may be
// requested.
var ErrPaymentAbandoned = errors.New("payment abandoned")

// PaymentWidget is the third-party checkout.  Collect shows the order to
// the user and yields the provider's proof once they have paid.
type PaymentWidget interface {
	Collect(ctx context.Context, order model.PaymentOrder) (model.PaymentProof, error)
}

// bookingAPI is the part of Client the bridge drives.
type bookingAPI interface {
	CreatePaymentOrder(ctx context.Context, bookingID uint64) (model.PaymentOrder, error)
	VerifyPayment(ctx context.Context, proof model.PaymentProof) (Booking, error)
	ResolveStatus(ctx context.Context, bookingID uint64) (Resolution, error)
}

// PaymentBridge takes a pending booking through checkout: order, widget,
// server-side verification, then a fresh read of the booking.
type PaymentBridge struct {
	api    bookingAPI
	widget PaymentWidget
}

func NewPaymentBridge(api bookingAPI, widget PaymentWidget) *PaymentBridge {
	return &PaymentBridge{api: api, widget: widget}
}

// Pay runs one payment attempt for bookingID.  The proof is never
// trusted locally: the returned resolution comes from re-reading the
// booking after the server accepted the proof.  On
// ErrPaymentVerificationFailed the booking is still pending and Pay may
// be called again before it expires.
func (p *PaymentBridge) Pay(ctx context.Context, bookingID uint64) (Resolution, error) {
	order, err := p.api.CreatePaymentOrder(ctx, bookingID)
	if err != nil {
		return Resolution{}, err
	}
	proof, err := p.widget.Collect(ctx, order)
	if err != nil {
		return Resolution{}, fmt.Errorf("collect payment for booking %d: %w", bookingID, err)
	}
	proof.BookingID = bookingID
	if proof.ProviderOrderID == "" {
		proof.ProviderOrderID = order.OrderID
	}
	if proof.ProviderOrderID != order.OrderID {
		return Resolution{}, fmt.Errorf("widget answered for order %q: %w", proof.ProviderOrderID, domain.ErrPaymentVerificationFailed)
	}
	if _, err := p.api.VerifyPayment(ctx, proof); err != nil {
		return Resolution{}, err
	}
	return p.api.ResolveStatus(ctx, bookingID)
}
