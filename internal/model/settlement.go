package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementRequested   SettlementStatus = "requested"
	SettlementUnderReview SettlementStatus = "under_review"
	SettlementApproved    SettlementStatus = "approved"
	SettlementRejected    SettlementStatus = "rejected"
	SettlementPaid        SettlementStatus = "paid"
)

// Settlement is an organizer's claim to the net revenue of one event.
// At most one settlement exists per event.  PlatformFeeAmount and
// NetPayableAmount are derived from GrossRevenue and
// PlatformFeePercent; FinalPayableAmount is the admin's payout figure
// and may differ from NetPayableAmount.
type Settlement struct {
	ID                 uint64           `json:"id"`                  // settlements.id
	EventID            uint64           `json:"eventId"`             // settlements.event_id (unique)
	OrganizerID        uint64           `json:"organizerId"`         // settlements.organizer_id
	EventTitle         string           `json:"eventTitle"`          // events.title (joined)
	Status             SettlementStatus `json:"status"`              // settlements.status
	GrossRevenue       int64            `json:"grossRevenue"`        // settlements.gross_revenue
	PlatformFeePercent decimal.Decimal  `json:"platformFeePercent"`  // settlements.platform_fee_percent
	PlatformFeeAmount  int64            `json:"platformFeeAmount"`   // settlements.platform_fee_amount
	NetPayableAmount   int64            `json:"netPayableAmount"`    // settlements.net_payable_amount
	FinalPayableAmount int64            `json:"finalPayableAmount"`  // settlements.final_payable_amount
	OrganizerNotes     string           `json:"organizerNotes"`      // settlements.organizer_notes
	AdminNotes         string           `json:"adminNotes"`          // settlements.admin_notes
	ReviewedBy         *uint64          `json:"reviewedBy,omitempty"` // settlements.reviewed_by (nullable)
	ReviewedAt         *time.Time       `json:"reviewedAt,omitempty"` // settlements.reviewed_at (nullable)
	PaidAt             *time.Time       `json:"paidAt,omitempty"`     // settlements.paid_at (nullable)
	CreatedAt          time.Time        `json:"createdAt"`           // settlements.created_at
	UpdatedAt          time.Time        `json:"updatedAt"`           // settlements.updated_at
}

// RevenueSummary is the pre-settlement view of an event's takings.
type RevenueSummary struct {
	EventID            uint64          `json:"eventId"`
	EventTitle         string          `json:"eventTitle"`
	ConfirmedBookings  int             `json:"confirmedBookings"`
	TicketsSold        int             `json:"ticketsSold"`
	GrossRevenue       int64           `json:"grossRevenue"`
	PlatformFeePercent decimal.Decimal `json:"platformFeePercent"`
	PlatformFeeAmount  int64           `json:"platformFeeAmount"`
	NetPayableAmount   int64           `json:"netPayableAmount"`
	EventEnded         bool            `json:"eventEnded"`
}

// SettlementComment is one entry of the append-only discussion thread
// attached to a settlement.
type SettlementComment struct {
	ID           uint64    `json:"id"`           // settlement_comments.id
	SettlementID uint64    `json:"settlementId"` // settlement_comments.settlement_id
	UserID       uint64    `json:"userId"`       // settlement_comments.user_id
	AuthorName   string    `json:"authorName"`   // users.name (joined)
	Role         Role      `json:"role"`         // settlement_comments.role
	Message      string    `json:"message"`      // settlement_comments.message
	CreatedAt    time.Time `json:"createdAt"`    // settlement_comments.created_at
}
