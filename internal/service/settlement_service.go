package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/metrics"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// SettlementService runs the organizer payout workflow: revenue
// preview, the one-per-event settlement request, admin review and the
// discussion thread attached to each settlement.
type SettlementService struct {
	tx          Transactor
	events      EventStore
	bookings    BookingStore
	settlements SettlementStore
	comments    CommentStore
	notifier    Notifier
	clock       clock.Clock
	feePercent  decimal.Decimal
}

type SettlementServiceOption func(*SettlementService)

// WithFeePercent sets the platform fee frozen into new settlements.
func WithFeePercent(pct decimal.Decimal) SettlementServiceOption {
	return func(s *SettlementService) {
		if domain.ValidateFeePercent(pct) == nil {
			s.feePercent = pct
		}
	}
}

func NewSettlementService(tx Transactor, events EventStore, bookings BookingStore, settlements SettlementStore, comments CommentStore, n Notifier, clk clock.Clock, opts ...SettlementServiceOption) *SettlementService {
	s := &SettlementService{
		tx:          tx,
		events:      events,
		bookings:    bookings,
		settlements: settlements,
		comments:    comments,
		notifier:    n,
		clock:       clk,
		feePercent:  domain.DefaultFeePercent,
	}
	if s.notifier == nil {
		s.notifier = Notifiers(nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SettlementService) ownedEvent(ctx context.Context, actor Actor, eventID uint64) (model.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if e.OrganizerID != actor.ID && !actor.IsAdmin() {
		return model.Event{}, domain.ErrForbidden
	}
	return e, nil
}

// RevenuePreview reports what a settlement requested now would contain.
func (s *SettlementService) RevenuePreview(ctx context.Context, actor Actor, eventID uint64) (model.RevenueSummary, error) {
	e, err := s.ownedEvent(ctx, actor, eventID)
	if err != nil {
		return model.RevenueSummary{}, err
	}
	totals, err := s.bookings.RevenueForEvent(ctx, eventID)
	if err != nil {
		return model.RevenueSummary{}, err
	}
	fig, err := domain.ComputeFigures(totals.Gross, s.feePercent)
	if err != nil {
		return model.RevenueSummary{}, err
	}
	return model.RevenueSummary{
		EventID:            e.ID,
		EventTitle:         e.Title,
		ConfirmedBookings:  totals.Bookings,
		TicketsSold:        totals.Tickets,
		GrossRevenue:       totals.Gross,
		PlatformFeePercent: s.feePercent,
		PlatformFeeAmount:  fig.FeeAmount,
		NetPayableAmount:   fig.Net,
		EventEnded:         e.HasEnded(s.clock.Now()),
	}, nil
}

// RequestSettlement files the single settlement of an ended event.  The
// gross is taken from confirmed bookings at this moment and the fee
// percent is frozen at the configured default.
func (s *SettlementService) RequestSettlement(ctx context.Context, actor Actor, eventID uint64, notes string, confirmNoFurtherBookings bool) (model.Settlement, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Settlement{}, err
	}
	if e.OrganizerID != actor.ID {
		return model.Settlement{}, domain.ErrForbidden
	}
	if !e.HasEnded(s.clock.Now()) {
		return model.Settlement{}, domain.ErrEventNotEnded
	}
	if !confirmNoFurtherBookings {
		return model.Settlement{}, domain.ErrConfirmationRequired
	}

	var st model.Settlement
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if _, err := s.settlements.GetByEvent(ctx, eventID); err == nil {
			return domain.ErrSettlementAlreadyExists
		} else if !errors.Is(err, domain.ErrSettlementNotFound) {
			return err
		}
		totals, err := s.bookings.RevenueForEvent(ctx, eventID)
		if err != nil {
			return err
		}
		fig, err := domain.ComputeFigures(totals.Gross, s.feePercent)
		if err != nil {
			return err
		}
		st = model.Settlement{
			EventID:            eventID,
			OrganizerID:        e.OrganizerID,
			EventTitle:         e.Title,
			Status:             model.SettlementRequested,
			GrossRevenue:       totals.Gross,
			PlatformFeePercent: s.feePercent,
			PlatformFeeAmount:  fig.FeeAmount,
			NetPayableAmount:   fig.Net,
			FinalPayableAmount: fig.Net,
			OrganizerNotes:     strings.TrimSpace(notes),
		}
		return s.settlements.Create(ctx, &st)
	})
	if err != nil {
		return model.Settlement{}, err
	}
	metrics.SettlementTransitions.WithLabelValues(string(st.Status)).Inc()
	s.notifier.SettlementUpdated(ctx, st, "", actor.ID)
	return st, nil
}

// GetForEvent returns the settlement of an event to its organizer or
// an admin.
func (s *SettlementService) GetForEvent(ctx context.Context, actor Actor, eventID uint64) (model.Settlement, error) {
	if _, err := s.ownedEvent(ctx, actor, eventID); err != nil {
		return model.Settlement{}, err
	}
	return s.settlements.GetByEvent(ctx, eventID)
}

// ListMine returns the caller's settlements, newest first.
func (s *SettlementService) ListMine(ctx context.Context, actor Actor) ([]model.Settlement, error) {
	return s.settlements.ListByOrganizer(ctx, actor.ID)
}

// ListPending returns settlements awaiting an admin decision.
func (s *SettlementService) ListPending(ctx context.Context, actor Actor) ([]model.Settlement, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.settlements.ListByStatus(ctx, model.SettlementRequested, model.SettlementUnderReview)
}

// GetForAdmin returns any settlement to an admin.
func (s *SettlementService) GetForAdmin(ctx context.Context, actor Actor, id uint64) (model.Settlement, error) {
	if !actor.IsAdmin() {
		return model.Settlement{}, domain.ErrForbidden
	}
	return s.settlements.GetByID(ctx, id)
}

// AdjustInput carries the admin's edits; nil fields are left alone.
type AdjustInput struct {
	FeePercent  *decimal.Decimal
	FinalAmount *int64
	AdminNotes  *string
}

// AdjustSettlement changes the fee percent, the final payout or the
// admin notes of a settlement still under consideration.  Fee and net
// are recomputed from the stored gross; the final payout is whatever
// the admin sets and may differ from net.
func (s *SettlementService) AdjustSettlement(ctx context.Context, actor Actor, id uint64, in AdjustInput) (model.Settlement, error) {
	if !actor.IsAdmin() {
		return model.Settlement{}, domain.ErrForbidden
	}
	if in.FeePercent != nil {
		if err := domain.ValidateFeePercent(*in.FeePercent); err != nil {
			return model.Settlement{}, err
		}
	}
	if in.FinalAmount != nil && *in.FinalAmount < 0 {
		return model.Settlement{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	var st model.Settlement
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.settlements.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !domain.Editable(cur.Status) {
			return domain.ErrSettlementLocked
		}
		if in.FeePercent != nil {
			fig, err := domain.ComputeFigures(cur.GrossRevenue, *in.FeePercent)
			if err != nil {
				return err
			}
			cur.PlatformFeePercent = *in.FeePercent
			cur.PlatformFeeAmount = fig.FeeAmount
			cur.NetPayableAmount = fig.Net
		}
		if in.FinalAmount != nil {
			cur.FinalPayableAmount = *in.FinalAmount
		}
		if in.AdminNotes != nil {
			cur.AdminNotes = strings.TrimSpace(*in.AdminNotes)
		}
		cur.UpdatedAt = now
		st = cur
		return s.settlements.Update(ctx, cur)
	})
	if err != nil {
		return model.Settlement{}, err
	}
	s.notifier.SettlementUpdated(ctx, st, st.Status, actor.ID)
	return st, nil
}

// OpenReview marks a requested settlement as under review.
func (s *SettlementService) OpenReview(ctx context.Context, actor Actor, id uint64) (model.Settlement, error) {
	return s.move(ctx, actor, id, model.SettlementUnderReview, nil)
}

// ApproveSettlement accepts the settlement with its stored final payout.
func (s *SettlementService) ApproveSettlement(ctx context.Context, actor Actor, id uint64) (model.Settlement, error) {
	return s.move(ctx, actor, id, model.SettlementApproved, nil)
}

// RejectSettlement declines the settlement.  Notes, when given, replace
// the admin notes.
func (s *SettlementService) RejectSettlement(ctx context.Context, actor Actor, id uint64, notes string) (model.Settlement, error) {
	return s.move(ctx, actor, id, model.SettlementRejected, func(st *model.Settlement) {
		if n := strings.TrimSpace(notes); n != "" {
			st.AdminNotes = n
		}
	})
}

// MarkPaid records that an approved settlement has been paid out.
func (s *SettlementService) MarkPaid(ctx context.Context, actor Actor, id uint64) (model.Settlement, error) {
	return s.move(ctx, actor, id, model.SettlementPaid, nil)
}

func (s *SettlementService) move(ctx context.Context, actor Actor, id uint64, to model.SettlementStatus, edit func(*model.Settlement)) (model.Settlement, error) {
	if !actor.IsAdmin() {
		return model.Settlement{}, domain.ErrForbidden
	}
	now := s.clock.Now()
	var (
		st   model.Settlement
		from model.SettlementStatus
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.settlements.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = cur.Status
		if cur.Status, err = domain.Transition(from, to); err != nil {
			return err
		}
		if to == model.SettlementPaid {
			cur.PaidAt = &now
		} else {
			reviewer := actor.ID
			cur.ReviewedBy = &reviewer
			cur.ReviewedAt = &now
		}
		if edit != nil {
			edit(&cur)
		}
		cur.UpdatedAt = now
		st = cur
		return s.settlements.Update(ctx, cur)
	})
	if err != nil {
		return model.Settlement{}, err
	}
	metrics.SettlementTransitions.WithLabelValues(string(to)).Inc()
	s.notifier.SettlementUpdated(ctx, st, from, actor.ID)
	return st, nil
}

func canDiscuss(actor Actor, st model.Settlement) bool {
	return actor.IsAdmin() || st.OrganizerID == actor.ID
}

// ListComments returns a settlement's thread in posting order.
func (s *SettlementService) ListComments(ctx context.Context, actor Actor, settlementID uint64) ([]model.SettlementComment, error) {
	st, err := s.settlements.GetByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if !canDiscuss(actor, st) {
		return nil, domain.ErrForbidden
	}
	return s.comments.ListBySettlement(ctx, settlementID)
}

// PostComment appends a message to a settlement's thread.  Threads are
// read-only once the settlement is approved or paid.
func (s *SettlementService) PostComment(ctx context.Context, actor Actor, settlementID uint64, message string) (model.SettlementComment, error) {
	msg := strings.TrimSpace(message)
	var c model.SettlementComment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := s.settlements.GetForUpdate(ctx, settlementID)
		if err != nil {
			return err
		}
		if !canDiscuss(actor, st) {
			return domain.ErrForbidden
		}
		if domain.CommentsLocked(st.Status) {
			return domain.ErrDiscussionLocked
		}
		if msg == "" {
			return domain.ErrInvalidMessage
		}
		c = model.SettlementComment{
			SettlementID: settlementID,
			UserID:       actor.ID,
			Role:         model.RoleOrganizer,
			Message:      msg,
		}
		if actor.IsAdmin() {
			c.Role = model.RoleAdmin
		}
		return s.comments.Create(ctx, &c)
	})
	if err != nil {
		return model.SettlementComment{}, err
	}
	s.notifier.CommentPosted(ctx, c)
	return c, nil
}
