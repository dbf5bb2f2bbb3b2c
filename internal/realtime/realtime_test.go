package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

type recordSender struct {
	channels []string
	msgs     []any
	err      error
}

func (r *recordSender) Send(channel string, msg any) error {
	r.channels = append(r.channels, channel)
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestCommentGoesToSettlementChannel(t *testing.T) {
	s := &recordSender{}
	n := NewNotifier(s, logrus.New())

	n.CommentPosted(context.Background(), model.SettlementComment{ID: 4, SettlementID: 12, Message: "hi"})
	n.BookingConfirmed(context.Background(), model.Booking{ID: 1, UserID: 8}, model.Event{ID: 2})

	require.Equal(t, []string{"settlement-12", "user-8"}, s.channels)
	msg := s.msgs[0].(map[string]any)
	assert.Equal(t, "comment", msg["type"])
}

func TestSendFailureIsSwallowed(t *testing.T) {
	s := &recordSender{err: errors.New("403")}
	n := NewNotifier(s, logrus.New())
	assert.NotPanics(t, func() {
		n.SettlementUpdated(context.Background(), model.Settlement{ID: 3}, model.SettlementRequested, 1)
	})
	assert.Equal(t, []string{"settlement-3"}, s.channels)
}
