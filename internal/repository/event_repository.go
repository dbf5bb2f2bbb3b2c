package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// EventRepo provides access to the events table.  Inventory changes go
// through DecrementAvailable and IncrementAvailable only, both of which
// keep available_tickets inside [0, total_tickets] in SQL.
type EventRepo struct {
	*Store
}

// NewEventRepo returns an EventRepo sharing s's pool and transactions.
func NewEventRepo(s *Store) *EventRepo { return &EventRepo{Store: s} }

const eventColumns = `id, organizer_id, title, subtitle, description, category, tags, cover_image, mode,
	venue_name, address, city, state, country, online_link, starts_at, ends_at, timezone, is_paid,
	ticket_price, total_tickets, available_tickets, max_tickets_per_user, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (model.Event, error) {
	var (
		e    model.Event
		tags []byte
	)
	err := s.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Subtitle, &e.Description, &e.Category, &tags,
		&e.CoverImage, &e.Mode, &e.VenueName, &e.Address, &e.City, &e.State, &e.Country, &e.OnlineLink,
		&e.StartsAt, &e.EndsAt, &e.Timezone, &e.IsPaid, &e.TicketPrice, &e.TotalTickets, &e.AvailableTickets,
		&e.MaxTicketsPerUser, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	e.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &e.Tags); err != nil {
			return e, fmt.Errorf("decode event %d tags: %w", e.ID, err)
		}
	}
	return e, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	bs, err := json.Marshal(tags)
	return string(bs), err
}

// Create inserts e and fills in its ID and timestamps.  AvailableTickets
// starts equal to TotalTickets.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (organizer_id, title, subtitle, description, category, tags, cover_image,
		mode, venue_name, address, city, state, country, online_link, starts_at, ends_at, timezone, is_paid,
		ticket_price, total_tickets, available_tickets, max_tickets_per_user, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	if e.Status == "" {
		e.Status = model.EventPublished
	}
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}
	res, err := r.conn(ctx).ExecContext(ctx, q, e.OrganizerID, e.Title, e.Subtitle, e.Description, e.Category,
		tags, e.CoverImage, e.Mode, e.VenueName, e.Address, e.City, e.State, e.Country, e.OnlineLink,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.Timezone, e.IsPaid, e.TicketPrice, e.TotalTickets,
		e.TotalTickets, e.MaxTicketsPerUser, e.Status)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = created
	return nil
}

// GetByID returns the event with the given id.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return model.Event{}, notFound(err, domain.ErrEventNotFound, "get event")
	}
	return e, nil
}

// GetForUpdate is GetByID holding a row lock until the surrounding
// transaction ends.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRowContext(ctx,
		forUpdate(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`), id))
	if err != nil {
		return model.Event{}, notFound(err, domain.ErrEventNotFound, "lock event")
	}
	return e, nil
}

// EventSort orders public event listings.
type EventSort string

const (
	SortByDate       EventSort = "date"    // soonest first
	SortByPrice      EventSort = "price"   // cheapest first
	SortByPopularity EventSort = "popular" // most tickets taken first
)

// Valid reports whether s is a known ordering.  Empty means SortByDate.
func (s EventSort) Valid() bool {
	switch s {
	case "", SortByDate, SortByPrice, SortByPopularity:
		return true
	}
	return false
}

func (s EventSort) orderBy() string {
	switch s {
	case SortByPrice:
		return "ticket_price ASC, starts_at ASC, id ASC"
	case SortByPopularity:
		return "(total_tickets - available_tickets) DESC, starts_at ASC, id ASC"
	default:
		return "starts_at ASC, id ASC"
	}
}

// EventFilter narrows public event listings.  Query matches title,
// subtitle and description; City matches case-insensitively.
type EventFilter struct {
	Query    string
	Mode     model.EventMode
	Category model.EventCategory
	City     string
	Sort     EventSort
	Upcoming bool
	Now      time.Time
	Page     int
	PageSize int
}

// Search lists published events matching f in f.Sort order and returns
// the total number of matches.
func (r *EventRepo) Search(ctx context.Context, f EventFilter) ([]model.Event, int64, error) {
	where := []string{"status = ?"}
	args := []any{model.EventPublished}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(subtitle) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, f.Mode)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.City != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(f.City))
	}
	if f.Upcoming {
		where = append(where, "ends_at >= ?")
		args = append(args, f.Now.UTC())
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+cond+` ORDER BY `+f.Sort.orderBy()+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	events, err := collectEvents(rows)
	return events, total, err
}

// ListByOrganizer returns every event of an organizer, newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer_id = ? ORDER BY starts_at DESC, id DESC`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list organizer events: %w", err)
	}
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update writes the editable columns of e, including both ticket counts.
func (r *EventRepo) Update(ctx context.Context, e model.Event) error {
	const q = `UPDATE events SET title=?, subtitle=?, description=?, category=?, tags=?, cover_image=?, mode=?,
		venue_name=?, address=?, city=?, state=?, country=?, online_link=?, starts_at=?, ends_at=?, timezone=?,
		is_paid=?, ticket_price=?, total_tickets=?, available_tickets=?, max_tickets_per_user=? WHERE id=?`
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}
	res, err := r.conn(ctx).ExecContext(ctx, q, e.Title, e.Subtitle, e.Description, e.Category, tags,
		e.CoverImage, e.Mode, e.VenueName, e.Address, e.City, e.State, e.Country, e.OnlineLink,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.Timezone, e.IsPaid, e.TicketPrice, e.TotalTickets, e.AvailableTickets,
		e.MaxTicketsPerUser, e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectRow(res, domain.ErrEventNotFound)
}

// SetStatus changes the publication status of an event.
func (r *EventRepo) SetStatus(ctx context.Context, id uint64, status model.EventStatus) error {
	res, err := r.conn(ctx).ExecContext(ctx, `UPDATE events SET status=? WHERE id=?`, status, id)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	return expectRow(res, domain.ErrEventNotFound)
}

// DecrementAvailable takes qty tickets out of stock.  The update only
// applies when enough tickets remain, so a zero row count means the
// event is sold out for this quantity.
func (r *EventRepo) DecrementAvailable(ctx context.Context, id uint64, qty int) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE events SET available_tickets = available_tickets - ? WHERE id = ? AND available_tickets >= ?`,
		qty, id, qty)
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInventoryExhausted
	}
	return nil
}

// IncrementAvailable returns qty tickets to stock, capped at the total.
func (r *EventRepo) IncrementAvailable(ctx context.Context, id uint64, qty int) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE events SET available_tickets = LEAST(total_tickets, available_tickets + ?) WHERE id = ?`,
		qty, id)
	if err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}
	return nil
}

func expectRow(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
