package domain

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

var transitions = map[model.SettlementStatus][]model.SettlementStatus{
	model.SettlementRequested:   {model.SettlementUnderReview, model.SettlementApproved, model.SettlementRejected},
	model.SettlementUnderReview: {model.SettlementApproved, model.SettlementRejected},
	model.SettlementApproved:    {model.SettlementPaid},
}

// CanTransition reports whether from → to is a legal settlement move.
func CanTransition(from, to model.SettlementStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns to when the move is legal and ErrInvalidTransition
// otherwise.
func Transition(from, to model.SettlementStatus) (model.SettlementStatus, error) {
	if !CanTransition(from, to) {
		return from, ErrInvalidTransition
	}
	return to, nil
}

// Editable reports whether an admin may still change the settlement's
// figures.
func Editable(s model.SettlementStatus) bool {
	return s == model.SettlementRequested || s == model.SettlementUnderReview
}

// CommentsLocked reports whether the discussion thread is read-only.
func CommentsLocked(s model.SettlementStatus) bool {
	return s == model.SettlementApproved || s == model.SettlementPaid
}

// DefaultFeePercent is the platform fee applied when a settlement is
// requested and no other value is configured.
var DefaultFeePercent = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// Figures are the amounts derived from gross revenue and a fee percent.
type Figures struct {
	FeeAmount int64
	Net       int64
}

// ValidateFeePercent rejects percentages outside [0, 100].
func ValidateFeePercent(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return ErrInvalidFeePercent
	}
	return nil
}

// ComputeFigures splits gross into the platform fee and the organizer's
// net.  The fee is gross × pct / 100 rounded half away from zero to a
// whole unit and net is the remainder, so fee + net always equals gross.
func ComputeFigures(gross int64, pct decimal.Decimal) (Figures, error) {
	if gross < 0 {
		return Figures{}, ErrInvalidAmount
	}
	if err := ValidateFeePercent(pct); err != nil {
		return Figures{}, err
	}
	fee := decimal.NewFromInt(gross).Mul(pct).Div(hundred).Round(0).IntPart()
	return Figures{FeeAmount: fee, Net: gross - fee}, nil
}
