package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EventService publishes and maintains events and serves the public
// catalogue.
type EventService struct {
	tx     Transactor
	events EventStore
	clock  clock.Clock
}

func NewEventService(tx Transactor, events EventStore, clk clock.Clock) *EventService {
	return &EventService{tx: tx, events: events, clock: clk}
}

// applyEditable copies the organizer-editable fields of in onto e.
func applyEditable(e *model.Event, in model.Event) {
	e.Title = strings.TrimSpace(in.Title)
	e.Subtitle = strings.TrimSpace(in.Subtitle)
	e.Description = strings.TrimSpace(in.Description)
	e.Category = model.EventCategory(strings.ToLower(strings.TrimSpace(string(in.Category))))
	if e.Category == "" {
		e.Category = model.CategoryMusic
	}
	e.Tags = []string{}
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			e.Tags = append(e.Tags, tag)
		}
	}
	e.CoverImage = strings.TrimSpace(in.CoverImage)
	e.Mode = in.Mode
	e.VenueName = strings.TrimSpace(in.VenueName)
	e.Address = strings.TrimSpace(in.Address)
	e.City = strings.TrimSpace(in.City)
	e.State = strings.TrimSpace(in.State)
	e.Country = strings.TrimSpace(in.Country)
	e.OnlineLink = strings.TrimSpace(in.OnlineLink)
	e.StartsAt = in.StartsAt.UTC()
	e.EndsAt = in.EndsAt.UTC()
	e.Timezone = in.Timezone
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	e.IsPaid = in.IsPaid
	e.TicketPrice = in.TicketPrice
	e.MaxTicketsPerUser = in.MaxTicketsPerUser
}

// Create publishes a new event owned by the caller with all tickets
// available.
func (s *EventService) Create(ctx context.Context, actor Actor, in model.Event) (model.Event, error) {
	if !domain.Intersects(actor.Roles, []model.Role{model.RoleOrganizer, model.RoleAdmin}) {
		return model.Event{}, domain.ErrForbidden
	}
	var e model.Event
	applyEditable(&e, in)
	e.OrganizerID = actor.ID
	e.TotalTickets = in.TotalTickets
	e.AvailableTickets = in.TotalTickets
	e.Status = model.EventPublished
	if err := domain.ValidateEvent(e); err != nil {
		return model.Event{}, err
	}
	if err := s.events.Create(ctx, &e); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Update rewrites an event's details.  Capacity can change only by the
// unsold amount; ended and cancelled events are frozen.
func (s *EventService) Update(ctx context.Context, actor Actor, id uint64, in model.Event) (model.Event, error) {
	var out model.Event
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.events.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.OrganizerID != actor.ID && !actor.IsAdmin() {
			return domain.ErrForbidden
		}
		if err := domain.Bookable(e, s.clock.Now()); err != nil {
			return err
		}
		available, err := domain.ResizeInventory(e, in.TotalTickets)
		if err != nil {
			return err
		}
		applyEditable(&e, in)
		e.TotalTickets = in.TotalTickets
		e.AvailableTickets = available
		if err := domain.ValidateEvent(e); err != nil {
			return err
		}
		out = e
		return s.events.Update(ctx, e)
	})
	return out, err
}

// Cancel withdraws an event from sale.  Existing bookings are kept.
func (s *EventService) Cancel(ctx context.Context, actor Actor, id uint64) (model.Event, error) {
	var out model.Event
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.events.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.OrganizerID != actor.ID && !actor.IsAdmin() {
			return domain.ErrForbidden
		}
		if e.Status == model.EventCancelled {
			return domain.ErrEventClosed
		}
		e.Status = model.EventCancelled
		out = e
		return s.events.SetStatus(ctx, id, model.EventCancelled)
	})
	return out, err
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id uint64) (model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// Search lists published events.  Out of range paging is clamped; an
// unknown category or ordering is rejected.
func (s *EventService) Search(ctx context.Context, f repository.EventFilter) (Page[model.Event], error) {
	if f.Category != "" && !f.Category.Valid() {
		return Page[model.Event]{}, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, f.Category)
	}
	if !f.Sort.Valid() {
		return Page[model.Event]{}, fmt.Errorf("%w: sort must be date, price or popular", domain.ErrInvalidInput)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.Now = s.clock.Now()
	items, total, err := s.events.Search(ctx, f)
	if err != nil {
		return Page[model.Event]{}, err
	}
	if items == nil {
		items = []model.Event{}
	}
	return Page[model.Event]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// ListMine returns the events the caller organizes.
func (s *EventService) ListMine(ctx context.Context, actor Actor) ([]model.Event, error) {
	return s.events.ListByOrganizer(ctx, actor.ID)
}
