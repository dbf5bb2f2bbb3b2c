package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

func TestCanAccess(t *testing.T) {
	attendee := &model.User{Roles: []model.Role{model.RoleAttendee}}
	organizer := &model.User{Roles: []model.Role{model.RoleAttendee, model.RoleOrganizer}}

	assert.False(t, CanAccess(attendee, model.RoleOrganizer, model.RoleAdmin))
	assert.True(t, CanAccess(organizer, model.RoleOrganizer, model.RoleAdmin))
	assert.False(t, CanAccess(nil, model.RoleAttendee))
	assert.False(t, CanAccess(organizer))
}

func TestPolicyCoversEveryRole(t *testing.T) {
	for _, r := range model.AllRoles {
		assert.NotEmpty(t, Policy[r], "role %s has no actions", r)
	}
	assert.True(t, Allows([]model.Role{model.RoleAttendee}, ActionBook))
	assert.False(t, Allows([]model.Role{model.RoleAttendee}, ActionRequestSettlement))
	assert.True(t, Allows([]model.Role{model.RoleOrganizer}, ActionRequestSettlement))
	assert.False(t, Allows([]model.Role{model.RoleOrganizer}, ActionReviewSettlement))
	assert.True(t, Allows([]model.Role{model.RoleAdmin}, ActionReviewSettlement))
	assert.False(t, Allows(nil, ActionBrowseEvents))
}

func TestFaultOf(t *testing.T) {
	f, ok := FaultOf(fmt.Errorf("lock event: %w", ErrInventoryExhausted))
	assert.True(t, ok)
	assert.Equal(t, "inventory_exhausted", f.Code)
	assert.Equal(t, http.StatusConflict, f.Status)

	_, ok = FaultOf(errors.New("boom"))
	assert.False(t, ok)

	assert.Equal(t, ErrDiscussionLocked, ErrorForCode("discussion_locked"))
	assert.Nil(t, ErrorForCode("nope"))
}
