package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditConsumer drains the marketplace queues and appends one line per
// message to an audit log file.  It reconnects with exponential backoff
// until its context is cancelled.
type AuditConsumer struct {
	url    string
	queues []string
	log    logrus.FieldLogger

	mu  sync.Mutex
	out io.Writer
}

// NewAuditConsumer writes to the file at path, creating parent
// directories as needed.
func NewAuditConsumer(url, path string, log logrus.FieldLogger) (*AuditConsumer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return newAuditConsumer(url, f, log), nil
}

func newAuditConsumer(url string, out io.Writer, log logrus.FieldLogger) *AuditConsumer {
	return &AuditConsumer{
		url:    url,
		queues: []string{BookingConfirmedQueue, SettlementUpdatedQueue, CommentPostedQueue},
		log:    log,
		out:    out,
	}
}

// Run blocks until ctx is cancelled.
func (a *AuditConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := dialBroker(a.url, defaultDialTimeout)
		if err != nil {
			a.log.WithError(err).WithField("retry_in", backoff.String()).Warn("audit consumer: dial failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = a.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		a.log.WithError(err).Warn("audit consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.log.WithError(err).Warn("audit consumer: set QoS failed")
	}

	type delivery struct {
		queue string
		amqp.Delivery
	}
	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, q := range a.queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, Delivery: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}
	go func() { wg.Wait(); close(merged) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := a.Handle(d.queue, d.Body); err != nil {
				a.log.WithError(err).WithField("queue", d.queue).Warn("audit consumer: rejecting message")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle formats one message body from queue and appends it to the log.
func (a *AuditConsumer) Handle(queue string, body []byte) error {
	line, err := FormatAuditLine(queue, body)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := io.WriteString(a.out, line); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders a single human readable audit line.
func FormatAuditLine(queue string, body []byte) (string, error) {
	switch queue {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | event_id=%d | event=%q | user_id=%d | qty=%d | total=%d\n",
			ev.ConfirmedAt, ev.BookingID, ev.EventID, ev.EventTitle, ev.UserID, ev.Quantity, ev.TotalAmount), nil
	case SettlementUpdatedQueue:
		var ev SettlementUpdatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Settlement %s | settlement_id=%d | event_id=%d | from=%s | gross=%d | fee_pct=%s | net=%d | final=%d | actor=%d\n",
			ev.At, ev.Status, ev.SettlementID, ev.EventID, ev.From, ev.GrossRevenue, ev.PlatformFeePercent,
			ev.NetPayableAmount, ev.FinalPayableAmount, ev.ActorID), nil
	case CommentPostedQueue:
		var ev CommentPostedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Comment posted | settlement_id=%d | comment_id=%d | role=%s | user_id=%d\n",
			ev.CreatedAt, ev.SettlementID, ev.CommentID, ev.Role, ev.UserID), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
