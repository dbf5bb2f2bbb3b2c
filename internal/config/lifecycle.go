package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// LifecycleConfig holds the business knobs of bookings, payments and
// settlements.
type LifecycleConfig struct {
	BookingHoldTTL     time.Duration   // how long a pending paid booking may wait for payment
	SweepInterval      time.Duration   // how often overdue pending bookings are expired
	SweepBatch         int             // bookings expired per sweep
	DefaultFeePercent  decimal.Decimal // platform fee frozen on new settlements
	Currency           string          // ISO currency of ticket prices
	PaymentKeyID       string          // public key handed to the payment widget
	PaymentSecret      string          // shared secret for payment signatures
}

// LoadLifecycleConfig reads booking, payment and settlement settings.
func LoadLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		BookingHoldTTL:    envDur("BOOKING_HOLD_TTL", 15*time.Minute),
		SweepInterval:     envDur("BOOKING_SWEEP_INTERVAL", time.Minute),
		SweepBatch:        envInt("BOOKING_SWEEP_BATCH", 200),
		DefaultFeePercent: envDecimal("DEFAULT_PLATFORM_FEE_PERCENT", decimal.NewFromInt(10)),
		Currency:          envStr("PAYMENT_CURRENCY", "INR"),
		PaymentKeyID:      envStr("PAYMENT_KEY_ID", ""),
		PaymentSecret:     must("PAYMENT_KEY_SECRET"),
	}
}
