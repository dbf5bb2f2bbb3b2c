// Package service runs the marketplace rules from the domain package
// against storage: bookings and payments, events, settlements and their
// discussion threads.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
)

// Transactor runs fn in a transaction carried by the context it receives.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Event, error)
	Search(ctx context.Context, f repository.EventFilter) ([]model.Event, int64, error)
	ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error)
	Update(ctx context.Context, e model.Event) error
	SetStatus(ctx context.Context, id uint64, status model.EventStatus) error
	DecrementAvailable(ctx context.Context, id uint64, qty int) error
	IncrementAvailable(ctx context.Context, id uint64, qty int) error
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListOverduePending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
	SetOrderID(ctx context.Context, id uint64, orderID string) error
	Confirm(ctx context.Context, id uint64, paymentID string, at time.Time) error
	SetStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
	RevenueForEvent(ctx context.Context, eventID uint64) (repository.RevenueTotals, error)
}

type SettlementStore interface {
	Create(ctx context.Context, s *model.Settlement) error
	GetByID(ctx context.Context, id uint64) (model.Settlement, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Settlement, error)
	GetByEvent(ctx context.Context, eventID uint64) (model.Settlement, error)
	ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Settlement, error)
	ListByStatus(ctx context.Context, statuses ...model.SettlementStatus) ([]model.Settlement, error)
	Update(ctx context.Context, s model.Settlement) error
}

type CommentStore interface {
	Create(ctx context.Context, c *model.SettlementComment) error
	ListBySettlement(ctx context.Context, settlementID uint64) ([]model.SettlementComment, error)
}

// Notifier receives marketplace events after the change that caused them
// has committed.  Implementations must not block for long and must not
// fail the caller.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b model.Booking, e model.Event)
	SettlementUpdated(ctx context.Context, s model.Settlement, from model.SettlementStatus, actorID uint64)
	CommentPosted(ctx context.Context, c model.SettlementComment)
}

// Notifiers fans each event out to every member.
type Notifiers []Notifier

func (ns Notifiers) BookingConfirmed(ctx context.Context, b model.Booking, e model.Event) {
	for _, n := range ns {
		n.BookingConfirmed(ctx, b, e)
	}
}

func (ns Notifiers) SettlementUpdated(ctx context.Context, s model.Settlement, from model.SettlementStatus, actorID uint64) {
	for _, n := range ns {
		n.SettlementUpdated(ctx, s, from, actorID)
	}
}

func (ns Notifiers) CommentPosted(ctx context.Context, c model.SettlementComment) {
	for _, n := range ns {
		n.CommentPosted(ctx, c)
	}
}

// InventoryWatcher is told after a commit that changed an event's
// available tickets, so copies of the catalogue can be dropped.
type InventoryWatcher interface {
	InventoryChanged(ctx context.Context, eventID uint64)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    uint64
	Roles []model.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == model.RoleAdmin {
			return true
		}
	}
	return false
}
