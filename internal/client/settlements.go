package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// Revenue previews what a settlement of eventID would contain.
func (c *Client) Revenue(ctx context.Context, eventID uint64) (model.RevenueSummary, error) {
	var out model.RevenueSummary
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/settlements/events/%d/revenue", eventID), nil, &out)
	return out, err
}

// RequestSettlement files the settlement of an ended event.  confirm is
// the organizer's acknowledgement that no further bookings will count.
func (c *Client) RequestSettlement(ctx context.Context, eventID uint64, notes string, confirm bool) (model.Settlement, error) {
	var out model.Settlement
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/settlements/events/%d/request", eventID), map[string]any{
		"notes":                    notes,
		"confirmNoFurtherBookings": confirm,
	}, &out)
	return out, err
}

// MySettlements lists the organizer's settlements.
func (c *Client) MySettlements(ctx context.Context) ([]model.Settlement, error) {
	var out []model.Settlement
	err := c.do(ctx, http.MethodGet, "/settlements/me", nil, &out)
	return out, err
}

// PendingSettlements lists settlements awaiting review.  Admin only.
func (c *Client) PendingSettlements(ctx context.Context) ([]model.Settlement, error) {
	var out []model.Settlement
	err := c.do(ctx, http.MethodGet, "/settlements/admin/pending", nil, &out)
	return out, err
}

// Settlement fetches any settlement.  Admin only.
func (c *Client) Settlement(ctx context.Context, id uint64) (model.Settlement, error) {
	var out model.Settlement
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/settlements/admin/%d", id), nil, &out)
	return out, err
}

// Adjustment edits a settlement under review.  Nil fields are unchanged.
type Adjustment struct {
	PlatformFeePercent *decimal.Decimal `json:"platformFeePercent,omitempty"`
	FinalPayableAmount *int64           `json:"finalPayableAmount,omitempty"`
	AdminNotes         *string          `json:"adminNotes,omitempty"`
}

// AdjustSettlement applies adj.  Admin only.
func (c *Client) AdjustSettlement(ctx context.Context, id uint64, adj Adjustment) (model.Settlement, error) {
	var out model.Settlement
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/settlements/admin/%d", id), adj, &out)
	return out, err
}

func (c *Client) transition(ctx context.Context, id uint64, action string, body any) (model.Settlement, error) {
	var out model.Settlement
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/settlements/admin/%d/%s", id, action), body, &out)
	return out, err
}

// ReviewSettlement moves a requested settlement under review.
func (c *Client) ReviewSettlement(ctx context.Context, id uint64) (model.Settlement, error) {
	return c.transition(ctx, id, "review", nil)
}

// ApproveSettlement approves with the stored final payable amount.
func (c *Client) ApproveSettlement(ctx context.Context, id uint64) (model.Settlement, error) {
	return c.transition(ctx, id, "approve", nil)
}

// RejectSettlement rejects with optional notes.
func (c *Client) RejectSettlement(ctx context.Context, id uint64, notes string) (model.Settlement, error) {
	return c.transition(ctx, id, "reject", map[string]string{"adminNotes": notes})
}

// MarkPaid records the payout of an approved settlement.
func (c *Client) MarkPaid(ctx context.Context, id uint64) (model.Settlement, error) {
	return c.transition(ctx, id, "paid", nil)
}

// Comments returns a settlement's discussion in posting order.
func (c *Client) Comments(ctx context.Context, settlementID uint64) ([]model.SettlementComment, error) {
	var out []model.SettlementComment
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/settlements/%d/comments", settlementID), nil, &out)
	return out, err
}

// PostComment appends message to a settlement's discussion.
func (c *Client) PostComment(ctx context.Context, settlementID uint64, message string) (model.SettlementComment, error) {
	var out model.SettlementComment
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/settlements/%d/comments", settlementID),
		map[string]string{"message": message}, &out)
	return out, err
}
