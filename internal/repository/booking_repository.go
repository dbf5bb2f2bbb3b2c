package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// BookingRepo provides access to the bookings table.
type BookingRepo struct {
	*Store
}

// NewBookingRepo returns a BookingRepo sharing s's pool and transactions.
func NewBookingRepo(s *Store) *BookingRepo { return &BookingRepo{Store: s} }

const bookingColumns = `id, event_id, user_id, quantity, total_amount, status, expires_at,
	provider_order_id, provider_payment_id, confirmed_at, created_at, updated_at`

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b         model.Booking
		expiresAt sql.NullTime
		orderID   sql.NullString
		paymentID sql.NullString
		confirmed sql.NullTime
	)
	err := s.Scan(&b.ID, &b.EventID, &b.UserID, &b.Quantity, &b.TotalAmount, &b.Status, &expiresAt,
		&orderID, &paymentID, &confirmed, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		b.ExpiresAt = &t
	}
	if orderID.Valid {
		v := orderID.String
		b.ProviderOrderID = &v
	}
	if paymentID.Valid {
		v := paymentID.String
		b.ProviderPaymentID = &v
	}
	if confirmed.Valid {
		t := confirmed.Time.UTC()
		b.ConfirmedAt = &t
	}
	return b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Create inserts b and fills in its ID and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (event_id, user_id, quantity, total_amount, status, expires_at, confirmed_at)
		VALUES (?,?,?,?,?,?,?)`
	res, err := r.conn(ctx).ExecContext(ctx, q, b.EventID, b.UserID, b.Quantity, b.TotalAmount, b.Status,
		nullTime(b.ExpiresAt), nullTime(b.ConfirmedAt))
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = created
	return nil
}

// GetByID returns the booking with the given id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return model.Booking{}, notFound(err, domain.ErrBookingNotFound, "get booking")
	}
	return b, nil
}

// GetForUpdate is GetByID holding a row lock until the surrounding
// transaction ends.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.conn(ctx).QueryRowContext(ctx,
		forUpdate(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`), id))
	if err != nil {
		return model.Booking{}, notFound(err, domain.ErrBookingNotFound, "lock booking")
	}
	return b, nil
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListOverduePending returns up to limit pending bookings whose payment
// window closed before now.
func (r *BookingRepo) ListOverduePending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = ? AND expires_at < ? ORDER BY expires_at ASC LIMIT ?`,
		model.BookingPending, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue bookings: %w", err)
	}
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetOrderID remembers the latest payment order issued for a booking.
func (r *BookingRepo) SetOrderID(ctx context.Context, id uint64, orderID string) error {
	res, err := r.conn(ctx).ExecContext(ctx, `UPDATE bookings SET provider_order_id=? WHERE id=?`, orderID, id)
	if err != nil {
		return fmt.Errorf("set order id: %w", err)
	}
	return expectRow(res, domain.ErrBookingNotFound)
}

// Confirm marks a pending booking confirmed by paymentID.
func (r *BookingRepo) Confirm(ctx context.Context, id uint64, paymentID string, at time.Time) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE bookings SET status=?, provider_payment_id=?, confirmed_at=? WHERE id=? AND status=?`,
		model.BookingConfirmed, paymentID, at.UTC(), id, model.BookingPending)
	if err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}
	return expectRow(res, domain.ErrInvalidTransition)
}

// SetStatus moves a booking from one status to another.  It fails with
// ErrInvalidTransition when the booking is no longer in from.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE bookings SET status=? WHERE id=? AND status=?`, to, id, from)
	if err != nil {
		return fmt.Errorf("set booking status: %w", err)
	}
	return expectRow(res, domain.ErrInvalidTransition)
}

// RevenueTotals aggregates the confirmed bookings of one event.
type RevenueTotals struct {
	Bookings int
	Tickets  int
	Gross    int64
}

// RevenueForEvent sums confirmed bookings of an event.
func (r *BookingRepo) RevenueForEvent(ctx context.Context, eventID uint64) (RevenueTotals, error) {
	var t RevenueTotals
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_amount),0)
		 FROM bookings WHERE event_id = ? AND status = ?`, eventID, model.BookingConfirmed).
		Scan(&t.Bookings, &t.Tickets, &t.Gross)
	if err != nil {
		return RevenueTotals{}, fmt.Errorf("sum revenue: %w", err)
	}
	return t, nil
}
