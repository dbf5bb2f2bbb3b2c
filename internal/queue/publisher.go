package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultRedialEvery = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while a recent dial
// failure is still cooling down.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Publisher sends JSON messages to durable queues.  It keeps one
// connection and channel open and redials lazily after the broker drops
// them.  A dial is bounded by the dial timeout and the caller's deadline,
// and after a failure further dials are attempted at most once per redial
// interval so an unreachable broker costs requests almost nothing.
type Publisher struct {
	url         string
	log         logrus.FieldLogger
	dialTimeout time.Duration
	redial      *rate.Limiter

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// PublisherOption customises a Publisher.
type PublisherOption func(*Publisher)

// WithDialTimeout bounds connecting to the broker, handshake included.
func WithDialTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// WithRedialInterval sets the minimum spacing between dial attempts.
func WithRedialInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.redial = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewPublisher returns a Publisher for url.  No connection is made until
// the first publish.
func NewPublisher(url string, log logrus.FieldLogger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		url:         url,
		log:         log,
		dialTimeout: defaultDialTimeout,
		redial:      rate.NewLimiter(rate.Every(defaultRedialEvery), 1),
		declared:    map[string]bool{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// dialBroker connects to url, giving up after timeout.
func dialBroker(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
}

func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if !p.redial.Allow() {
			return nil, ErrBrokerUnavailable
		}
		timeout := p.dialTimeout
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
			timeout = time.Until(dl)
		}
		if timeout <= 0 {
			return nil, ctx.Err()
		}
		conn, err := dialBroker(p.url, timeout)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.ch = ch
	p.declared = map[string]bool{}
	return ch, nil
}

// Publish marshals v and sends it to queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	if !p.declared[queue] {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
