package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

type sentMessage struct {
	queue string
	v     any
}

type fakeSink struct {
	sent []sentMessage
	err  error
}

func (f *fakeSink) Publish(_ context.Context, queue string, v any) error {
	f.sent = append(f.sent, sentMessage{queue, v})
	return f.err
}

func TestNotifierMapsEvents(t *testing.T) {
	sink := &fakeSink{}
	n := NewNotifier(sink, logrus.New())
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pay := "pay_1"

	n.BookingConfirmed(context.Background(),
		model.Booking{ID: 5, UserID: 9, Quantity: 2, TotalAmount: 400, ProviderPaymentID: &pay, ConfirmedAt: &at},
		model.Event{ID: 3, Title: "Jazz", StartsAt: at})
	n.SettlementUpdated(context.Background(),
		model.Settlement{ID: 1, EventID: 3, Status: model.SettlementApproved, PlatformFeePercent: decimal.NewFromInt(10), UpdatedAt: at},
		model.SettlementRequested, 77)

	require.Len(t, sink.sent, 2)
	assert.Equal(t, BookingConfirmedQueue, sink.sent[0].queue)
	bc := sink.sent[0].v.(BookingConfirmedEvent)
	assert.Equal(t, "pay_1", bc.ProviderPaymentID)
	assert.Equal(t, "2025-03-01T12:00:00Z", bc.ConfirmedAt)

	su := sink.sent[1].v.(SettlementUpdatedEvent)
	assert.Equal(t, "requested", su.From)
	assert.Equal(t, "approved", su.Status)
	assert.Equal(t, "10", su.PlatformFeePercent)
	assert.Equal(t, uint64(77), su.ActorID)
}

func TestNotifierSwallowsErrors(t *testing.T) {
	sink := &fakeSink{err: errors.New("broker down")}
	n := NewNotifier(sink, logrus.New())
	assert.NotPanics(t, func() {
		n.CommentPosted(context.Background(), model.SettlementComment{ID: 1, SettlementID: 2})
	})
	assert.Len(t, sink.sent, 1)
}
