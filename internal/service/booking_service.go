package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/metrics"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

const (
	defaultHoldTTL  = 15 * time.Minute
	defaultCurrency = "INR"
	qrSize          = 256
)

// BookingService owns the booking and payment lifecycle: stock is taken
// when a booking is created, given back when a pending booking is
// cancelled or expires, and a booking is confirmed only against a
// verified payment proof.
type BookingService struct {
	tx       Transactor
	events   EventStore
	bookings BookingStore
	gateway  PaymentGateway
	notifier Notifier
	clock    clock.Clock
	log      logrus.FieldLogger
	watchers []InventoryWatcher

	holdTTL  time.Duration
	currency string
}

type BookingServiceOption func(*BookingService)

// WithHoldTTL overrides how long a pending booking waits for payment.
func WithHoldTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithCurrency sets the currency payment orders are issued in.
func WithCurrency(c string) BookingServiceOption {
	return func(s *BookingService) {
		if c != "" {
			s.currency = c
		}
	}
}

// WithBookingLogger replaces the standard logrus logger.
func WithBookingLogger(l logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInventoryWatcher registers w for every change to available tickets.
func WithInventoryWatcher(w InventoryWatcher) BookingServiceOption {
	return func(s *BookingService) {
		if w != nil {
			s.watchers = append(s.watchers, w)
		}
	}
}

func NewBookingService(tx Transactor, events EventStore, bookings BookingStore, gw PaymentGateway, n Notifier, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		tx:       tx,
		events:   events,
		bookings: bookings,
		gateway:  gw,
		notifier: n,
		clock:    clk,
		log:      logrus.StandardLogger(),
		holdTTL:  defaultHoldTTL,
		currency: defaultCurrency,
	}
	if s.notifier == nil {
		s.notifier = Notifiers(nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking takes quantity tickets of an event for userID.  Paid
// events yield a pending booking that must be paid before it expires;
// free events are confirmed at once.
func (s *BookingService) CreateBooking(ctx context.Context, userID, eventID uint64, quantity int) (model.Booking, error) {
	if quantity < 1 {
		return model.Booking{}, domain.ErrInvalidQuantity
	}
	now := s.clock.Now()
	var (
		booking model.Booking
		event   model.Event
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if err := domain.CheckBooking(e, quantity, now); err != nil {
			return err
		}
		if err := s.events.DecrementAvailable(ctx, eventID, quantity); err != nil {
			return err
		}
		booking = model.Booking{
			EventID:  eventID,
			UserID:   userID,
			Quantity: quantity,
			Status:   model.BookingConfirmed,
		}
		if e.IsPaid {
			exp := now.Add(s.holdTTL)
			booking.Status = model.BookingPending
			booking.TotalAmount = int64(quantity) * e.TicketPrice
			booking.ExpiresAt = &exp
		} else {
			booking.ConfirmedAt = &now
		}
		event = e
		return s.bookings.Create(ctx, &booking)
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.inventoryChanged(ctx, eventID)
	metrics.BookingsCreated.WithLabelValues(string(booking.Status)).Inc()
	if booking.Status == model.BookingConfirmed {
		metrics.BookingOutcomes.WithLabelValues("confirmed").Inc()
		s.notifier.BookingConfirmed(ctx, booking, event)
	}
	return booking, nil
}

// expire flips an overdue pending booking and returns its tickets.  It
// must run inside a transaction holding the booking row.
func (s *BookingService) expire(ctx context.Context, b model.Booking) error {
	if err := s.bookings.SetStatus(ctx, b.ID, model.BookingPending, model.BookingExpired); err != nil {
		return err
	}
	if err := s.events.IncrementAvailable(ctx, b.EventID, b.Quantity); err != nil {
		return err
	}
	metrics.BookingOutcomes.WithLabelValues("expired").Inc()
	return nil
}

func (s *BookingService) inventoryChanged(ctx context.Context, eventID uint64) {
	for _, w := range s.watchers {
		w.InventoryChanged(ctx, eventID)
	}
}

func (s *BookingService) overdue(b model.Booking, now time.Time) bool {
	return b.Status == model.BookingPending && domain.ResolveBookingStatus(b, now) == model.BookingExpired
}

// CreatePaymentOrder issues a fresh payment order for a pending booking
// of the caller.  Any number of orders may be issued while the booking
// is payable; only the latest one is accepted at verification.
func (s *BookingService) CreatePaymentOrder(ctx context.Context, userID, bookingID uint64) (model.PaymentOrder, error) {
	now := s.clock.Now()
	var (
		order   model.PaymentOrder
		expired bool
		eventID uint64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return domain.ErrForbidden
		}
		if b.Status != model.BookingPending {
			return domain.ErrBookingExpired
		}
		if s.overdue(b, now) {
			expired, eventID = true, b.EventID
			return s.expire(ctx, b)
		}
		order, err = s.gateway.CreateOrder(ctx, b.ID, b.TotalAmount, s.currency)
		if err != nil {
			return fmt.Errorf("create payment order: %w", errors.Join(domain.ErrUpstreamUnavailable, err))
		}
		return s.bookings.SetOrderID(ctx, b.ID, order.OrderID)
	})
	if err != nil {
		return model.PaymentOrder{}, err
	}
	if expired {
		s.inventoryChanged(ctx, eventID)
		return model.PaymentOrder{}, domain.ErrBookingExpired
	}
	return order, nil
}

// VerifyPayment confirms a pending booking against a payment proof.
// Replaying the valid proof that already confirmed the booking returns
// the booking unchanged; a tampered replay is rejected.
func (s *BookingService) VerifyPayment(ctx context.Context, userID uint64, proof model.PaymentProof) (model.Booking, error) {
	now := s.clock.Now()
	var (
		booking   model.Booking
		event     model.Event
		confirmed bool
		expired   bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetForUpdate(ctx, proof.BookingID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return domain.ErrForbidden
		}
		switch {
		case b.Status == model.BookingConfirmed:
			if b.ProviderPaymentID == nil || *b.ProviderPaymentID != proof.ProviderPaymentID {
				return domain.ErrInvalidTransition
			}
			if !s.authentic(b, proof) {
				metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
				return domain.ErrPaymentVerificationFailed
			}
			booking = b
			return nil
		case b.Status != model.BookingPending:
			return domain.ErrBookingExpired
		case s.overdue(b, now):
			expired = true
			booking = b
			return s.expire(ctx, b)
		}
		if !s.authentic(b, proof) {
			metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
			return domain.ErrPaymentVerificationFailed
		}
		if err := s.bookings.Confirm(ctx, b.ID, proof.ProviderPaymentID, now); err != nil {
			return err
		}
		if event, err = s.events.GetByID(ctx, b.EventID); err != nil {
			return err
		}
		pid := proof.ProviderPaymentID
		b.Status = model.BookingConfirmed
		b.ProviderPaymentID = &pid
		b.ConfirmedAt = &now
		b.ExpiresAt = nil
		booking = b
		confirmed = true
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	if expired {
		s.inventoryChanged(ctx, booking.EventID)
		return model.Booking{}, domain.ErrBookingExpired
	}
	if confirmed {
		metrics.PaymentVerifications.WithLabelValues("accepted").Inc()
		metrics.BookingOutcomes.WithLabelValues("confirmed").Inc()
		s.notifier.BookingConfirmed(ctx, booking, event)
	} else {
		metrics.PaymentVerifications.WithLabelValues("replayed").Inc()
	}
	return booking, nil
}

// authentic reports whether proof answers the last order issued for b
// and carries the provider's signature.
func (s *BookingService) authentic(b model.Booking, proof model.PaymentProof) bool {
	return b.ProviderOrderID != nil && *b.ProviderOrderID == proof.ProviderOrderID &&
		s.gateway.VerifySignature(proof.ProviderOrderID, proof.ProviderPaymentID, proof.ProviderSignature)
}

// CancelBooking withdraws a pending booking and returns its tickets.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) (model.Booking, error) {
	now := s.clock.Now()
	var (
		booking model.Booking
		expired bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return domain.ErrForbidden
		}
		if b.Status != model.BookingPending {
			return domain.ErrInvalidTransition
		}
		booking = b
		if s.overdue(b, now) {
			expired = true
			return s.expire(ctx, b)
		}
		if err := s.bookings.SetStatus(ctx, b.ID, model.BookingPending, model.BookingCancelled); err != nil {
			return err
		}
		if err := s.events.IncrementAvailable(ctx, b.EventID, b.Quantity); err != nil {
			return err
		}
		booking.Status = model.BookingCancelled
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.inventoryChanged(ctx, booking.EventID)
	if expired {
		return model.Booking{}, domain.ErrInvalidTransition
	}
	metrics.BookingOutcomes.WithLabelValues("cancelled").Inc()
	return booking, nil
}

// ListMyBookings returns the caller's bookings, newest first, each with
// the status it should be displayed with.
func (s *BookingService) ListMyBookings(ctx context.Context, userID uint64) ([]model.BookingView, error) {
	list, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	cache := make(map[uint64]*model.EventSummary)
	out := make([]model.BookingView, 0, len(list))
	for _, b := range list {
		sum, ok := cache[b.EventID]
		if !ok {
			e, err := s.events.GetByID(ctx, b.EventID)
			switch {
			case err == nil:
				sum = summarize(e)
			case !errors.Is(err, domain.ErrEventNotFound):
				return nil, err
			}
			cache[b.EventID] = sum
		}
		out = append(out, model.BookingView{
			Booking:       b,
			DisplayStatus: domain.ResolveBookingStatus(b, now),
			Event:         sum,
		})
	}
	return out, nil
}

// GetBooking returns one of the caller's bookings.
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID uint64) (model.BookingView, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.BookingView{}, err
	}
	if b.UserID != userID {
		return model.BookingView{}, domain.ErrForbidden
	}
	view := model.BookingView{Booking: b, DisplayStatus: domain.ResolveBookingStatus(b, s.clock.Now())}
	if e, err := s.events.GetByID(ctx, b.EventID); err == nil {
		view.Event = summarize(e)
	}
	return view, nil
}

func summarize(e model.Event) *model.EventSummary {
	sum := &model.EventSummary{
		ID:       e.ID,
		Title:    e.Title,
		Mode:     e.Mode,
		StartsAt: e.StartsAt,
		EndsAt:   e.EndsAt,
		Timezone: e.Timezone,
	}
	if e.Mode != model.ModeOffline {
		sum.OnlineLink = e.OnlineLink
	}
	return sum
}

// TicketPayload is the text encoded in a ticket's QR code.
func TicketPayload(b model.Booking) string {
	return fmt.Sprintf("VENUEX-TICKET:booking=%d;event=%d;user=%d;qty=%d", b.ID, b.EventID, b.UserID, b.Quantity)
}

// TicketQR renders the entry QR code of a confirmed booking as PNG.
// Online events have no venue entry and therefore no ticket.
func (s *BookingService) TicketQR(ctx context.Context, userID, bookingID uint64) ([]byte, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if b.Status != model.BookingConfirmed {
		return nil, domain.ErrInvalidTransition
	}
	e, err := s.events.GetByID(ctx, b.EventID)
	if err != nil {
		return nil, err
	}
	if e.Mode == model.ModeOnline {
		return nil, domain.ErrInvalidTransition
	}
	png, err := qrcode.Encode(TicketPayload(b), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode ticket qr: %w", err)
	}
	return png, nil
}

// ExpireStale expires up to limit overdue pending bookings and returns
// how many it flipped.  Bookings paid or cancelled concurrently are
// skipped.
func (s *BookingService) ExpireStale(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	due, err := s.bookings.ListOverduePending(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, cand := range due {
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			b, err := s.bookings.GetForUpdate(ctx, cand.ID)
			if err != nil {
				return err
			}
			if !s.overdue(b, now) {
				return errSkip
			}
			return s.expire(ctx, b)
		})
		switch {
		case err == nil:
			n++
			s.inventoryChanged(ctx, cand.EventID)
		case errors.Is(err, errSkip):
		default:
			s.log.WithError(err).WithField("booking_id", cand.ID).Warn("expire booking failed")
		}
	}
	return n, nil
}

var errSkip = errors.New("skip")

// Affordances reports what the owner may do with b right now.
func (s *BookingService) Affordances(b model.Booking) domain.Affordances {
	return domain.BookingAffordances(b, s.clock.Now())
}
