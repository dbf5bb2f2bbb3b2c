package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// SettlementRepo provides access to the settlements table.  The unique
// index on event_id backs the one-settlement-per-event rule.
type SettlementRepo struct {
	*Store
}

// NewSettlementRepo returns a SettlementRepo sharing s's pool and
// transactions.
func NewSettlementRepo(s *Store) *SettlementRepo { return &SettlementRepo{Store: s} }

const settlementSelect = `SELECT s.id, s.event_id, s.organizer_id, e.title, s.status, s.gross_revenue,
	s.platform_fee_percent, s.platform_fee_amount, s.net_payable_amount, s.final_payable_amount,
	s.organizer_notes, s.admin_notes, s.reviewed_by, s.reviewed_at, s.paid_at, s.created_at, s.updated_at
	FROM settlements s JOIN events e ON e.id = s.event_id`

func scanSettlement(sc rowScanner) (model.Settlement, error) {
	var (
		s          model.Settlement
		reviewedBy sql.NullInt64
		reviewedAt sql.NullTime
		paidAt     sql.NullTime
	)
	err := sc.Scan(&s.ID, &s.EventID, &s.OrganizerID, &s.EventTitle, &s.Status, &s.GrossRevenue,
		&s.PlatformFeePercent, &s.PlatformFeeAmount, &s.NetPayableAmount, &s.FinalPayableAmount,
		&s.OrganizerNotes, &s.AdminNotes, &reviewedBy, &reviewedAt, &paidAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if reviewedBy.Valid {
		v := uint64(reviewedBy.Int64)
		s.ReviewedBy = &v
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time.UTC()
		s.ReviewedAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		s.PaidAt = &t
	}
	return s, nil
}

// Create inserts s.  A second settlement for the same event fails with
// ErrSettlementAlreadyExists.
func (r *SettlementRepo) Create(ctx context.Context, s *model.Settlement) error {
	const q = `INSERT INTO settlements (event_id, organizer_id, status, gross_revenue, platform_fee_percent,
		platform_fee_amount, net_payable_amount, final_payable_amount, organizer_notes, admin_notes)
		VALUES (?,?,?,?,?,?,?,?,?,?)`
	res, err := r.conn(ctx).ExecContext(ctx, q, s.EventID, s.OrganizerID, s.Status, s.GrossRevenue,
		s.PlatformFeePercent, s.PlatformFeeAmount, s.NetPayableAmount, s.FinalPayableAmount,
		s.OrganizerNotes, s.AdminNotes)
	if err != nil {
		if isDuplicate(err) {
			return domain.ErrSettlementAlreadyExists
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = created
	return nil
}

// GetByID returns the settlement with the given id.
func (r *SettlementRepo) GetByID(ctx context.Context, id uint64) (model.Settlement, error) {
	s, err := scanSettlement(r.conn(ctx).QueryRowContext(ctx, settlementSelect+` WHERE s.id = ?`, id))
	if err != nil {
		return model.Settlement{}, notFound(err, domain.ErrSettlementNotFound, "get settlement")
	}
	return s, nil
}

// GetForUpdate is GetByID holding a row lock on the settlement.
func (r *SettlementRepo) GetForUpdate(ctx context.Context, id uint64) (model.Settlement, error) {
	q := settlementSelect + ` WHERE s.id = ?`
	if txFromContext(ctx) != nil {
		q += ` FOR UPDATE OF s`
	}
	s, err := scanSettlement(r.conn(ctx).QueryRowContext(ctx, q, id))
	if err != nil {
		return model.Settlement{}, notFound(err, domain.ErrSettlementNotFound, "lock settlement")
	}
	return s, nil
}

// GetByEvent returns the settlement requested for an event.
func (r *SettlementRepo) GetByEvent(ctx context.Context, eventID uint64) (model.Settlement, error) {
	s, err := scanSettlement(r.conn(ctx).QueryRowContext(ctx, settlementSelect+` WHERE s.event_id = ?`, eventID))
	if err != nil {
		return model.Settlement{}, notFound(err, domain.ErrSettlementNotFound, "get event settlement")
	}
	return s, nil
}

// ListByOrganizer returns an organizer's settlements, newest first.
func (r *SettlementRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Settlement, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		settlementSelect+` WHERE s.organizer_id = ? ORDER BY s.created_at DESC, s.id DESC`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list organizer settlements: %w", err)
	}
	return collectSettlements(rows)
}

// ListByStatus returns settlements in any of statuses, oldest first so
// the review queue is worked in arrival order.
func (r *SettlementRepo) ListByStatus(ctx context.Context, statuses ...model.SettlementStatus) ([]model.Settlement, error) {
	if len(statuses) == 0 {
		return []model.Settlement{}, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	rows, err := r.conn(ctx).QueryContext(ctx,
		settlementSelect+` WHERE s.status IN (`+marks+`) ORDER BY s.created_at ASC, s.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return collectSettlements(rows)
}

func collectSettlements(rows *sql.Rows) ([]model.Settlement, error) {
	defer rows.Close()
	out := []model.Settlement{}
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update writes the mutable columns of s.
func (r *SettlementRepo) Update(ctx context.Context, s model.Settlement) error {
	var reviewedBy sql.NullInt64
	if s.ReviewedBy != nil {
		reviewedBy = sql.NullInt64{Int64: int64(*s.ReviewedBy), Valid: true}
	}
	const q = `UPDATE settlements SET status=?, platform_fee_percent=?, platform_fee_amount=?,
		net_payable_amount=?, final_payable_amount=?, admin_notes=?, reviewed_by=?, reviewed_at=?, paid_at=?
		WHERE id=?`
	res, err := r.conn(ctx).ExecContext(ctx, q, s.Status, s.PlatformFeePercent, s.PlatformFeeAmount,
		s.NetPayableAmount, s.FinalPayableAmount, s.AdminNotes, reviewedBy, nullTime(s.ReviewedAt),
		nullTime(s.PaidAt), s.ID)
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	return expectRow(res, domain.ErrSettlementNotFound)
}
