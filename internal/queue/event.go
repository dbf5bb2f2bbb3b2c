// Package queue defines the messages exchanged over RabbitMQ, the publisher
// that sends them and the audit consumer that records them.
package queue

// Queue names.  All queues are durable and bound to the default exchange.
const (
	BookingConfirmedQueue  = "booking.confirmed"
	SettlementUpdatedQueue = "settlement.updated"
	CommentPostedQueue     = "settlement.comment"
)

// BookingConfirmedEvent is published when a booking becomes confirmed,
// either directly for a free event or after payment verification.  It
// carries enough for downstream consumers to notify or audit without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID         uint64 `json:"booking_id"`
	EventID           uint64 `json:"event_id"`
	EventTitle        string `json:"event_title"`
	UserID            uint64 `json:"user_id"`
	Quantity          int    `json:"quantity"`
	TotalAmount       int64  `json:"total_amount"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	StartsAt          string `json:"starts_at"`
	ConfirmedAt       string `json:"confirmed_at"`
}

// SettlementUpdatedEvent is published on every settlement status change,
// including its creation.
type SettlementUpdatedEvent struct {
	SettlementID       uint64 `json:"settlement_id"`
	EventID            uint64 `json:"event_id"`
	OrganizerID        uint64 `json:"organizer_id"`
	From               string `json:"from,omitempty"`
	Status             string `json:"status"`
	GrossRevenue       int64  `json:"gross_revenue"`
	PlatformFeePercent string `json:"platform_fee_percent"`
	NetPayableAmount   int64  `json:"net_payable_amount"`
	FinalPayableAmount int64  `json:"final_payable_amount"`
	ActorID            uint64 `json:"actor_id"`
	At                 string `json:"at"`
}

// CommentPostedEvent is published when a message is appended to a
// settlement discussion.
type CommentPostedEvent struct {
	CommentID    uint64 `json:"comment_id"`
	SettlementID uint64 `json:"settlement_id"`
	UserID       uint64 `json:"user_id"`
	AuthorName   string `json:"author_name"`
	Role         string `json:"role"`
	Message      string `json:"message"`
	CreatedAt    string `json:"created_at"`
}
