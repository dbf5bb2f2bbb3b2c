package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// AnalyticsRepo runs the read-only aggregate queries behind the admin
// dashboard.  Revenue always means the sum of confirmed bookings.
type AnalyticsRepo struct {
	*Store
}

// NewAnalyticsRepo returns an AnalyticsRepo on s.
func NewAnalyticsRepo(s *Store) *AnalyticsRepo { return &AnalyticsRepo{Store: s} }

// Summary holds the dashboard KPIs.
type Summary struct {
	TotalRevenue     int64 `json:"totalRevenue"`
	TotalBookings    int   `json:"totalBookings"`
	TotalTickets     int   `json:"totalTickets"`
	TotalEvents      int   `json:"totalEvents"`
	ActiveOrganizers int   `json:"activeOrganizers"`
}

// Summary computes the dashboard KPIs.
func (r *AnalyticsRepo) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount),0), COUNT(*), COALESCE(SUM(quantity),0) FROM bookings WHERE status = ?`,
		model.BookingConfirmed).Scan(&s.TotalRevenue, &s.TotalBookings, &s.TotalTickets)
	if err != nil {
		return Summary{}, fmt.Errorf("booking totals: %w", err)
	}
	if err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&s.TotalEvents); err != nil {
		return Summary{}, fmt.Errorf("event count: %w", err)
	}
	err = r.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT organizer_id) FROM events WHERE status = ?`, model.EventPublished).Scan(&s.ActiveOrganizers)
	if err != nil {
		return Summary{}, fmt.Errorf("organizer count: %w", err)
	}
	return s, nil
}

// RevenueByDate maps YYYY-MM-DD of confirmation to revenue.
func (r *AnalyticsRepo) RevenueByDate(ctx context.Context) (map[string]int64, error) {
	return r.revenueBy(ctx,
		`SELECT DATE_FORMAT(confirmed_at, '%Y-%m-%d') AS d, SUM(total_amount) FROM bookings
		 WHERE status = ? AND confirmed_at IS NOT NULL GROUP BY d ORDER BY d`)
}

// RevenueByEvent maps event title to revenue.
func (r *AnalyticsRepo) RevenueByEvent(ctx context.Context) (map[string]int64, error) {
	return r.revenueBy(ctx,
		`SELECT e.title, SUM(b.total_amount) FROM bookings b JOIN events e ON e.id = b.event_id
		 WHERE b.status = ? GROUP BY e.id, e.title`)
}

func (r *AnalyticsRepo) revenueBy(ctx context.Context, q string) (map[string]int64, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, q, model.BookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("revenue breakdown: %w", err)
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			k string
			v int64
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] += v
	}
	return out, rows.Err()
}

// BookingRow is one line of the bookings detail view.
type BookingRow struct {
	BookingID   uint64 `json:"bookingId"`
	EventTitle  string `json:"eventTitle"`
	UserEmail   string `json:"userEmail"`
	Quantity    int    `json:"quantity"`
	TotalAmount int64  `json:"totalAmount"`
	Status      string `json:"status"`
}

// BookingDetails lists the most recent bookings.
func (r *AnalyticsRepo) BookingDetails(ctx context.Context, limit int) ([]BookingRow, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT b.id, e.title, u.email, b.quantity, b.total_amount, b.status
		 FROM bookings b JOIN events e ON e.id = b.event_id JOIN users u ON u.id = b.user_id
		 ORDER BY b.created_at DESC, b.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("booking details: %w", err)
	}
	defer rows.Close()
	out := []BookingRow{}
	for rows.Next() {
		var b BookingRow
		if err := rows.Scan(&b.BookingID, &b.EventTitle, &b.UserEmail, &b.Quantity, &b.TotalAmount, &b.Status); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// EventRow is one line of the events detail view.
type EventRow struct {
	EventID     uint64 `json:"eventId"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	TicketsSold int    `json:"ticketsSold"`
	Revenue     int64  `json:"revenue"`
}

// EventDetails lists events with their confirmed sales.
func (r *AnalyticsRepo) EventDetails(ctx context.Context, limit int) ([]EventRow, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT e.id, e.title, e.status, COALESCE(SUM(b.quantity),0), COALESCE(SUM(b.total_amount),0)
		 FROM events e LEFT JOIN bookings b ON b.event_id = e.id AND b.status = ?
		 GROUP BY e.id, e.title, e.status ORDER BY e.starts_at DESC LIMIT ?`, model.BookingConfirmed, limit)
	if err != nil {
		return nil, fmt.Errorf("event details: %w", err)
	}
	defer rows.Close()
	out := []EventRow{}
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.Title, &e.Status, &e.TicketsSold, &e.Revenue); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OrganizerRow is one line of the organizers detail view.
type OrganizerRow struct {
	UserID  uint64 `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Events  int    `json:"events"`
	Revenue int64  `json:"revenue"`
}

// OrganizerDetails lists organizers with their event count and revenue.
func (r *AnalyticsRepo) OrganizerDetails(ctx context.Context, limit int) ([]OrganizerRow, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT u.id, u.name, u.email, COUNT(DISTINCT e.id), COALESCE(SUM(b.total_amount),0)
		 FROM users u JOIN user_roles ur ON ur.user_id = u.id AND ur.role = ?
		 LEFT JOIN events e ON e.organizer_id = u.id
		 LEFT JOIN bookings b ON b.event_id = e.id AND b.status = ?
		 GROUP BY u.id, u.name, u.email ORDER BY u.id LIMIT ?`, model.RoleOrganizer, model.BookingConfirmed, limit)
	if err != nil {
		return nil, fmt.Errorf("organizer details: %w", err)
	}
	defer rows.Close()
	out := []OrganizerRow{}
	for rows.Next() {
		var o OrganizerRow
		if err := rows.Scan(&o.UserID, &o.Name, &o.Email, &o.Events, &o.Revenue); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
