package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// PaymentGateway issues payment orders and checks the proofs the payment
// widget returns for them.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, bookingID uint64, amount int64, currency string) (model.PaymentOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// HMACGateway signs payments as hex(HMAC-SHA256(secret, orderID|paymentID)),
// the scheme used by the hosted checkout the marketplace integrates with.
// Order ids are generated locally.
type HMACGateway struct {
	secret []byte
	newID  func() string
}

// NewHMACGateway returns a gateway sharing secret with the provider.
func NewHMACGateway(secret string) *HMACGateway {
	return &HMACGateway{
		secret: []byte(secret),
		newID:  func() string { return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// CreateOrder allocates a fresh order id for the booking.
func (g *HMACGateway) CreateOrder(_ context.Context, bookingID uint64, amount int64, currency string) (model.PaymentOrder, error) {
	return model.PaymentOrder{
		BookingID: bookingID,
		OrderID:   g.newID(),
		Amount:    amount,
		Currency:  currency,
	}, nil
}

// Sign computes the signature the provider attaches to a successful payment.
func (g *HMACGateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature with the expected value in constant time.
func (g *HMACGateway) VerifySignature(orderID, paymentID, signature string) bool {
	want := g.Sign(orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}
