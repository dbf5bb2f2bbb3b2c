// Package realtime pushes marketplace events to browser clients over PubNub.
package realtime

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/metrics"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// Sender delivers one message to one channel.
type Sender interface {
	Send(channel string, msg any) error
}

type pubnubSender struct {
	pn *pubnub.PubNub
}

func (s pubnubSender) Send(channel string, msg any) error {
	_, status, err := s.pn.Publish().Channel(channel).Message(msg).Execute()
	if err != nil {
		return err
	}
	if status.Error != nil {
		return status.Error
	}
	return nil
}

// Options configure the PubNub client.
type Options struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
}

// NewPubNubSender builds a PubNub client from o.
func NewPubNubSender(o Options) Sender {
	cfg := pubnub.NewConfigWithUserId(pubnub.UserId(o.UserID))
	cfg.PublishKey = o.PublishKey
	cfg.SubscribeKey = o.SubscribeKey
	cfg.SecretKey = o.SecretKey
	return pubnubSender{pn: pubnub.NewPubNub(cfg)}
}

// SettlementChannel is the channel carrying a settlement's updates and
// discussion.
func SettlementChannel(id uint64) string { return fmt.Sprintf("settlement-%d", id) }

// UserChannel is a user's private notification channel.
func UserChannel(id uint64) string { return fmt.Sprintf("user-%d", id) }

// Notifier publishes marketplace events to realtime channels.
type Notifier struct {
	sender Sender
	log    logrus.FieldLogger
}

// NewNotifier returns a Notifier sending through sender.
func NewNotifier(sender Sender, log logrus.FieldLogger) *Notifier {
	return &Notifier{sender: sender, log: log}
}

func (n *Notifier) send(channel string, msg map[string]any) {
	if err := n.sender.Send(channel, msg); err != nil {
		metrics.PublishFailures.WithLabelValues("pubnub").Inc()
		n.log.WithError(err).WithField("channel", channel).Warn("realtime publish failed")
	}
}

// BookingConfirmed tells the attendee their booking is confirmed.
func (n *Notifier) BookingConfirmed(_ context.Context, b model.Booking, e model.Event) {
	n.send(UserChannel(b.UserID), map[string]any{
		"type":       "booking_confirmed",
		"bookingId":  b.ID,
		"eventId":    e.ID,
		"eventTitle": e.Title,
		"quantity":   b.Quantity,
	})
}

// SettlementUpdated broadcasts a status change on the settlement channel.
func (n *Notifier) SettlementUpdated(_ context.Context, s model.Settlement, from model.SettlementStatus, _ uint64) {
	n.send(SettlementChannel(s.ID), map[string]any{
		"type":               "settlement_updated",
		"settlementId":       s.ID,
		"from":               from,
		"status":             s.Status,
		"finalPayableAmount": s.FinalPayableAmount,
	})
}

// CommentPosted pushes a new discussion message to the settlement channel.
func (n *Notifier) CommentPosted(_ context.Context, c model.SettlementComment) {
	n.send(SettlementChannel(c.SettlementID), map[string]any{
		"type":    "comment",
		"comment": c,
	})
}
