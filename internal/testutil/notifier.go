package testutil

import (
	"context"
	"sync"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

// SettlementUpdate is one recorded SettlementUpdated call.
type SettlementUpdate struct {
	Settlement model.Settlement
	From       model.SettlementStatus
	ActorID    uint64
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu          sync.Mutex
	Confirmed   []model.Booking
	Settlements []SettlementUpdate
	Comments    []model.SettlementComment
}

func (r *RecordingNotifier) BookingConfirmed(_ context.Context, b model.Booking, _ model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirmed = append(r.Confirmed, b)
}

func (r *RecordingNotifier) SettlementUpdated(_ context.Context, s model.Settlement, from model.SettlementStatus, actorID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Settlements = append(r.Settlements, SettlementUpdate{Settlement: s, From: from, ActorID: actorID})
}

func (r *RecordingNotifier) CommentPosted(_ context.Context, c model.SettlementComment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Comments = append(r.Comments, c)
}

// ConfirmedCount returns how many confirmations were seen.
func (r *RecordingNotifier) ConfirmedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Confirmed)
}
