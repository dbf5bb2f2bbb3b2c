package queue

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/metrics"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// Sink is where encoded events go.  *Publisher satisfies it.
type Sink interface {
	Publish(ctx context.Context, queue string, v any) error
}

// Notifier turns marketplace events into queue messages.  Failures are
// logged and counted but never returned; a broker outage must not fail
// the request that triggered the event.
type Notifier struct {
	sink Sink
	log  logrus.FieldLogger
}

// NewNotifier returns a Notifier publishing to sink.
func NewNotifier(sink Sink, log logrus.FieldLogger) *Notifier {
	return &Notifier{sink: sink, log: log}
}

func (n *Notifier) send(ctx context.Context, queue string, v any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.sink.Publish(ctx, queue, v); err != nil {
		metrics.PublishFailures.WithLabelValues("amqp").Inc()
		n.log.WithError(err).WithField("queue", queue).Warn("event publish failed")
	}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// BookingConfirmed publishes to booking.confirmed.
func (n *Notifier) BookingConfirmed(ctx context.Context, b model.Booking, e model.Event) {
	ev := BookingConfirmedEvent{
		BookingID:   b.ID,
		EventID:     e.ID,
		EventTitle:  e.Title,
		UserID:      b.UserID,
		Quantity:    b.Quantity,
		TotalAmount: b.TotalAmount,
		StartsAt:    stamp(e.StartsAt),
	}
	if b.ProviderPaymentID != nil {
		ev.ProviderPaymentID = *b.ProviderPaymentID
	}
	if b.ConfirmedAt != nil {
		ev.ConfirmedAt = stamp(*b.ConfirmedAt)
	}
	n.send(ctx, BookingConfirmedQueue, ev)
}

// SettlementUpdated publishes to settlement.updated.
func (n *Notifier) SettlementUpdated(ctx context.Context, s model.Settlement, from model.SettlementStatus, actorID uint64) {
	n.send(ctx, SettlementUpdatedQueue, SettlementUpdatedEvent{
		SettlementID:       s.ID,
		EventID:            s.EventID,
		OrganizerID:        s.OrganizerID,
		From:               string(from),
		Status:             string(s.Status),
		GrossRevenue:       s.GrossRevenue,
		PlatformFeePercent: s.PlatformFeePercent.String(),
		NetPayableAmount:   s.NetPayableAmount,
		FinalPayableAmount: s.FinalPayableAmount,
		ActorID:            actorID,
		At:                 stamp(s.UpdatedAt),
	})
}

// CommentPosted publishes to settlement.comment.
func (n *Notifier) CommentPosted(ctx context.Context, c model.SettlementComment) {
	n.send(ctx, CommentPostedQueue, CommentPostedEvent{
		CommentID:    c.ID,
		SettlementID: c.SettlementID,
		UserID:       c.UserID,
		AuthorName:   c.AuthorName,
		Role:         string(c.Role),
		Message:      c.Message,
		CreatedAt:    stamp(c.CreatedAt),
	})
}
