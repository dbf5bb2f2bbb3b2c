package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// CommentRepo appends to and reads settlement discussion threads.  It has
// no update or delete.
type CommentRepo struct {
	*Store
}

// NewCommentRepo returns a CommentRepo sharing s's pool and transactions.
func NewCommentRepo(s *Store) *CommentRepo { return &CommentRepo{Store: s} }

// Create appends c and fills in its ID, author name and created_at.
func (r *CommentRepo) Create(ctx context.Context, c *model.SettlementComment) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO settlement_comments (settlement_id, user_id, role, message) VALUES (?,?,?,?)`,
		c.SettlementID, c.UserID, c.Role, c.Message)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRowContext(ctx,
		`SELECT c.id, u.name, c.created_at FROM settlement_comments c JOIN users u ON u.id = c.user_id WHERE c.id = ?`,
		id).Scan(&c.ID, &c.AuthorName, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("reload comment: %w", err)
	}
	return nil
}

// ListBySettlement returns a thread in posting order.
func (r *CommentRepo) ListBySettlement(ctx context.Context, settlementID uint64) ([]model.SettlementComment, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT c.id, c.settlement_id, c.user_id, u.name, c.role, c.message, c.created_at
		 FROM settlement_comments c JOIN users u ON u.id = c.user_id
		 WHERE c.settlement_id = ? ORDER BY c.created_at ASC, c.id ASC`, settlementID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	out := []model.SettlementComment{}
	for rows.Next() {
		var c model.SettlementComment
		if err := rows.Scan(&c.ID, &c.SettlementID, &c.UserID, &c.AuthorName, &c.Role, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
