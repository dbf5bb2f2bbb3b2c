// Package testutil provides an in-memory implementation of the storage
// ports used by the service layer.  Transactions are serialized and
// rolled back on error, which is enough to reproduce the row-lock
// semantics of the MySQL repositories in unit tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
)

type txKey struct{}

// MemStore holds every table.  Use the accessor methods to obtain the
// per-table stores.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	now func() time.Time

	nextID      uint64
	events      map[uint64]model.Event
	bookings    map[uint64]model.Booking
	settlements map[uint64]model.Settlement
	comments    []model.SettlementComment
	names       map[uint64]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		now:         func() time.Time { return time.Now().UTC() },
		events:      map[uint64]model.Event{},
		bookings:    map[uint64]model.Booking{},
		settlements: map[uint64]model.Settlement{},
		names:       map[uint64]string{},
	}
}

// SetNow fixes the timestamps stamped on created rows.
func (m *MemStore) SetNow(fn func() time.Time) { m.now = fn }

// SetUserName registers the display name joined onto comments.
func (m *MemStore) SetUserName(id uint64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = name
}

func (m *MemStore) id() uint64 {
	m.nextID++
	return m.nextID
}

// WithTx serializes fn against other transactions and restores the
// previous state when fn fails.  Nested calls join the outer one.
func (m *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	nextID      uint64
	events      map[uint64]model.Event
	bookings    map[uint64]model.Booking
	settlements map[uint64]model.Settlement
	comments    []model.SettlementComment
}

func (m *MemStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		nextID:      m.nextID,
		events:      make(map[uint64]model.Event, len(m.events)),
		bookings:    make(map[uint64]model.Booking, len(m.bookings)),
		settlements: make(map[uint64]model.Settlement, len(m.settlements)),
		comments:    append([]model.SettlementComment(nil), m.comments...),
	}
	for k, v := range m.events {
		s.events[k] = v
	}
	for k, v := range m.bookings {
		s.bookings[k] = v
	}
	for k, v := range m.settlements {
		s.settlements[k] = v
	}
	return s
}

func (m *MemStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.events = s.events
	m.bookings = s.bookings
	m.settlements = s.settlements
	m.comments = s.comments
}

// Events returns the event table.
func (m *MemStore) Events() *Events { return &Events{m} }

// Bookings returns the booking table.
func (m *MemStore) Bookings() *Bookings { return &Bookings{m} }

// Settlements returns the settlement table.
func (m *MemStore) Settlements() *Settlements { return &Settlements{m} }

// Comments returns the comment table.
func (m *MemStore) Comments() *Comments { return &Comments{m} }

// Events implements service.EventStore.
type Events struct{ m *MemStore }

// Put inserts or replaces e as is.  Zero ids are assigned.
func (s *Events) Put(e model.Event) model.Event {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.m.id()
	} else if e.ID > s.m.nextID {
		s.m.nextID = e.ID
	}
	s.m.events[e.ID] = e
	return e
}

func (s *Events) Create(_ context.Context, e *model.Event) error {
	now := s.m.now()
	e.AvailableTickets = e.TotalTickets
	e.CreatedAt, e.UpdatedAt = now, now
	*e = s.Put(*e)
	return nil
}

func (s *Events) GetByID(_ context.Context, id uint64) (model.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.events[id]
	if !ok {
		return model.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (s *Events) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	return s.GetByID(ctx, id)
}

func (s *Events) Search(_ context.Context, f repository.EventFilter) ([]model.Event, int64, error) {
	s.m.mu.Lock()
	var all []model.Event
	q := strings.ToLower(f.Query)
	for _, e := range s.m.events {
		if e.Status != model.EventPublished {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Title+"\n"+e.Subtitle+"\n"+e.Description), q) {
			continue
		}
		if f.Mode != "" && e.Mode != f.Mode {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.City != "" && !strings.EqualFold(e.City, f.City) {
			continue
		}
		if f.Upcoming && e.EndsAt.Before(f.Now) {
			continue
		}
		all = append(all, e)
	}
	s.m.mu.Unlock()
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch f.Sort {
		case repository.SortByPrice:
			if a.TicketPrice != b.TicketPrice {
				return a.TicketPrice < b.TicketPrice
			}
		case repository.SortByPopularity:
			sa, sb := a.TotalTickets-a.AvailableTickets, b.TotalTickets-b.AvailableTickets
			if sa != sb {
				return sa > sb
			}
		}
		if a.StartsAt.Equal(b.StartsAt) {
			return a.ID < b.ID
		}
		return a.StartsAt.Before(b.StartsAt)
	})
	total := int64(len(all))
	lo := (f.Page - 1) * f.PageSize
	if lo > len(all) {
		lo = len(all)
	}
	hi := lo + f.PageSize
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], total, nil
}

func (s *Events) ListByOrganizer(_ context.Context, organizerID uint64) ([]model.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Event
	for _, e := range s.m.events {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

func (s *Events) Update(_ context.Context, e model.Event) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[e.ID]; !ok {
		return domain.ErrEventNotFound
	}
	e.UpdatedAt = s.m.now()
	s.m.events[e.ID] = e
	return nil
}

func (s *Events) SetStatus(_ context.Context, id uint64, status model.EventStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	e.Status = status
	s.m.events[id] = e
	return nil
}

func (s *Events) DecrementAvailable(_ context.Context, id uint64, qty int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.events[id]
	if !ok || e.AvailableTickets < qty {
		return domain.ErrInventoryExhausted
	}
	e.AvailableTickets -= qty
	s.m.events[id] = e
	return nil
}

func (s *Events) IncrementAvailable(_ context.Context, id uint64, qty int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.events[id]
	if !ok {
		return nil
	}
	e.AvailableTickets += qty
	if e.AvailableTickets > e.TotalTickets {
		e.AvailableTickets = e.TotalTickets
	}
	s.m.events[id] = e
	return nil
}

// Bookings implements service.BookingStore.
type Bookings struct{ m *MemStore }

// Put inserts or replaces b as is.  Zero ids are assigned.
func (s *Bookings) Put(b model.Booking) model.Booking {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.m.id()
	} else if b.ID > s.m.nextID {
		s.m.nextID = b.ID
	}
	s.m.bookings[b.ID] = b
	return b
}

func (s *Bookings) Create(_ context.Context, b *model.Booking) error {
	now := s.m.now()
	b.CreatedAt, b.UpdatedAt = now, now
	*b = s.Put(*b)
	return nil
}

func (s *Bookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	b, ok := s.m.bookings[id]
	if !ok {
		return model.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *Bookings) GetForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
	return s.GetByID(ctx, id)
}

func (s *Bookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Booking
	for _, b := range s.m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Bookings) ListOverduePending(_ context.Context, now time.Time, limit int) ([]model.Booking, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Booking
	for _, b := range s.m.bookings {
		if b.Status == model.BookingPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Bookings) update(id uint64, fn func(*model.Booking) error) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	b, ok := s.m.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if err := fn(&b); err != nil {
		return err
	}
	b.UpdatedAt = s.m.now()
	s.m.bookings[id] = b
	return nil
}

func (s *Bookings) SetOrderID(_ context.Context, id uint64, orderID string) error {
	return s.update(id, func(b *model.Booking) error {
		b.ProviderOrderID = &orderID
		return nil
	})
}

func (s *Bookings) Confirm(_ context.Context, id uint64, paymentID string, at time.Time) error {
	return s.update(id, func(b *model.Booking) error {
		if b.Status != model.BookingPending {
			return domain.ErrInvalidTransition
		}
		b.Status = model.BookingConfirmed
		b.ProviderPaymentID = &paymentID
		b.ConfirmedAt = &at
		b.ExpiresAt = nil
		return nil
	})
}

func (s *Bookings) SetStatus(_ context.Context, id uint64, from, to model.BookingStatus) error {
	return s.update(id, func(b *model.Booking) error {
		if b.Status != from {
			return domain.ErrInvalidTransition
		}
		b.Status = to
		return nil
	})
}

func (s *Bookings) RevenueForEvent(_ context.Context, eventID uint64) (repository.RevenueTotals, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var t repository.RevenueTotals
	for _, b := range s.m.bookings {
		if b.EventID == eventID && b.Status == model.BookingConfirmed {
			t.Bookings++
			t.Tickets += b.Quantity
			t.Gross += b.TotalAmount
		}
	}
	return t, nil
}

// Settlements implements service.SettlementStore.
type Settlements struct{ m *MemStore }

func (s *Settlements) Create(_ context.Context, st *model.Settlement) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, have := range s.m.settlements {
		if have.EventID == st.EventID {
			return domain.ErrSettlementAlreadyExists
		}
	}
	now := s.m.now()
	st.ID = s.m.id()
	st.CreatedAt, st.UpdatedAt = now, now
	if e, ok := s.m.events[st.EventID]; ok {
		st.EventTitle = e.Title
	}
	s.m.settlements[st.ID] = *st
	return nil
}

func (s *Settlements) GetByID(_ context.Context, id uint64) (model.Settlement, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	st, ok := s.m.settlements[id]
	if !ok {
		return model.Settlement{}, domain.ErrSettlementNotFound
	}
	return st, nil
}

func (s *Settlements) GetForUpdate(ctx context.Context, id uint64) (model.Settlement, error) {
	return s.GetByID(ctx, id)
}

func (s *Settlements) GetByEvent(_ context.Context, eventID uint64) (model.Settlement, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, st := range s.m.settlements {
		if st.EventID == eventID {
			return st, nil
		}
	}
	return model.Settlement{}, domain.ErrSettlementNotFound
}

func (s *Settlements) list(keep func(model.Settlement) bool) []model.Settlement {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Settlement
	for _, st := range s.m.settlements {
		if keep(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Settlements) ListByOrganizer(_ context.Context, organizerID uint64) ([]model.Settlement, error) {
	return s.list(func(st model.Settlement) bool { return st.OrganizerID == organizerID }), nil
}

func (s *Settlements) ListByStatus(_ context.Context, statuses ...model.SettlementStatus) ([]model.Settlement, error) {
	return s.list(func(st model.Settlement) bool {
		for _, want := range statuses {
			if st.Status == want {
				return true
			}
		}
		return false
	}), nil
}

func (s *Settlements) Update(_ context.Context, st model.Settlement) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.settlements[st.ID]; !ok {
		return domain.ErrSettlementNotFound
	}
	st.UpdatedAt = s.m.now()
	s.m.settlements[st.ID] = st
	return nil
}

// Comments implements service.CommentStore.
type Comments struct{ m *MemStore }

func (s *Comments) Create(_ context.Context, c *model.SettlementComment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c.ID = s.m.id()
	c.CreatedAt = s.m.now()
	c.AuthorName = s.m.names[c.UserID]
	s.m.comments = append(s.m.comments, *c)
	return nil
}

func (s *Comments) ListBySettlement(_ context.Context, settlementID uint64) ([]model.SettlementComment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []model.SettlementComment{}
	for _, c := range s.m.comments {
		if c.SettlementID == settlementID {
			out = append(out, c)
		}
	}
	return out, nil
}
