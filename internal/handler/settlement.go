package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/service"
)

// SettlementHandler serves payouts for organizers and the admin review
// workflow, including the per-settlement discussion.
type SettlementHandler struct {
	Settlements *service.SettlementService
}

func NewSettlementHandler(s *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{Settlements: s}
}

type settlementRequestReq struct {
	EventID                  uint64 `json:"eventId"`
	Notes                    string `json:"notes"`
	ConfirmNoFurtherBookings bool   `json:"confirmNoFurtherBookings"`
}

type adjustReq struct {
	PlatformFeePercent *decimal.Decimal `json:"platformFeePercent"`
	FinalPayableAmount *int64           `json:"finalPayableAmount"`
	AdminNotes         *string          `json:"adminNotes"`
}

type rejectReq struct {
	AdminNotes string `json:"adminNotes"`
}

type commentReq struct {
	Message string `json:"message"`
}

func settlementsOrEmpty(list []model.Settlement) []model.Settlement {
	if list == nil {
		return []model.Settlement{}
	}
	return list
}

// Revenue previews what a settlement of the event would contain.
func (h *SettlementHandler) Revenue(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, ok := idParam(c, "eventId")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sum, err := h.Settlements.RevenuePreview(ctx, a, eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// ForEvent returns the settlement of an event.
func (h *SettlementHandler) ForEvent(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, ok := idParam(c, "eventId")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Settlements.GetForEvent(ctx, a, eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Request files a settlement for the event in the path, or for eventId
// in the body on the payouts alias.
func (h *SettlementHandler) Request(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req settlementRequestReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if id, ok := idParam(c, "eventId"); ok {
		req.EventID = id
	}
	if req.EventID == 0 {
		return badRequest(c, "eventId required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Settlements.RequestSettlement(ctx, a, req.EventID, req.Notes, req.ConfirmNoFurtherBookings)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// Mine lists the caller's settlements.
func (h *SettlementHandler) Mine(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Settlements.ListMine(ctx, a)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, settlementsOrEmpty(list))
}

// Pending lists settlements awaiting review.
func (h *SettlementHandler) Pending(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Settlements.ListPending(ctx, a)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, settlementsOrEmpty(list))
}

// AdminGet returns any settlement.
func (h *SettlementHandler) AdminGet(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid settlement id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Settlements.GetForAdmin(ctx, a, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Adjust edits the fee percent, final payout or admin notes.
func (h *SettlementHandler) Adjust(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid settlement id")
	}
	var req adjustReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Settlements.AdjustSettlement(ctx, a, id, service.AdjustInput{
		FeePercent:  req.PlatformFeePercent,
		FinalAmount: req.FinalPayableAmount,
		AdminNotes:  req.AdminNotes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

type transitionFunc func(ctx context.Context, a service.Actor, id uint64) (model.Settlement, error)

func (h *SettlementHandler) transition(fn transitionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, err := actor(c)
		if err != nil {
			return writeError(c, err)
		}
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid settlement id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		st, err := fn(ctx, a, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, st)
	}
}

// Review moves a requested settlement under review.
func (h *SettlementHandler) Review() echo.HandlerFunc {
	return h.transition(h.Settlements.OpenReview)
}

// Approve accepts a settlement with its stored final payout.
func (h *SettlementHandler) Approve() echo.HandlerFunc {
	return h.transition(h.Settlements.ApproveSettlement)
}

// Reject declines a settlement, optionally with notes.  An empty body is
// accepted; a malformed one is not.
func (h *SettlementHandler) Reject() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req rejectReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		return h.transition(func(ctx context.Context, a service.Actor, id uint64) (model.Settlement, error) {
			return h.Settlements.RejectSettlement(ctx, a, id, req.AdminNotes)
		})(c)
	}
}

// Paid records the payout of an approved settlement.
func (h *SettlementHandler) Paid() echo.HandlerFunc {
	return h.transition(h.Settlements.MarkPaid)
}

// Comments lists the discussion of a settlement.
func (h *SettlementHandler) Comments(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid settlement id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Settlements.ListComments(ctx, a, id)
	if err != nil {
		return writeError(c, err)
	}
	if list == nil {
		list = []model.SettlementComment{}
	}
	return c.JSON(http.StatusOK, list)
}

// PostComment appends to the discussion of a settlement.
func (h *SettlementHandler) PostComment(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid settlement id")
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cm, err := h.Settlements.PostComment(ctx, a, id, req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cm)
}
