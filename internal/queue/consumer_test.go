package queue

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAuditLine(t *testing.T) {
	body, err := json.Marshal(BookingConfirmedEvent{
		BookingID: 7, EventID: 3, EventTitle: "Go Meetup", UserID: 11, Quantity: 2, TotalAmount: 1000,
		ConfirmedAt: "2025-03-01T12:00:00Z",
	})
	require.NoError(t, err)

	line, err := FormatAuditLine(BookingConfirmedQueue, body)
	require.NoError(t, err)
	assert.Equal(t, "[2025-03-01T12:00:00Z] Booking confirmed | booking_id=7 | event_id=3 | event=\"Go Meetup\" | user_id=11 | qty=2 | total=1000\n", line)
}

func TestFormatAuditLineRejectsGarbage(t *testing.T) {
	_, err := FormatAuditLine(SettlementUpdatedQueue, []byte("{"))
	assert.Error(t, err)
	_, err = FormatAuditLine("nope", []byte("{}"))
	assert.Error(t, err)
}

func TestHandleAppends(t *testing.T) {
	var buf bytes.Buffer
	a := newAuditConsumer("amqp://unused", &buf, logrus.New())

	body, _ := json.Marshal(SettlementUpdatedEvent{SettlementID: 1, EventID: 2, Status: "approved", From: "requested", At: "t"})
	require.NoError(t, a.Handle(SettlementUpdatedQueue, body))
	body, _ = json.Marshal(CommentPostedEvent{SettlementID: 1, CommentID: 5, Role: "admin", CreatedAt: "t"})
	require.NoError(t, a.Handle(CommentPostedQueue, body))

	assert.Contains(t, buf.String(), "Settlement approved | settlement_id=1")
	assert.Contains(t, buf.String(), "Comment posted | settlement_id=1 | comment_id=5")
}
