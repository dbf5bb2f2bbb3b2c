package domain

import "github.com/iliyamo/venuex-ticketing/internal/model"

// Action names something a user may attempt in the marketplace.
type Action string

const (
	ActionBrowseEvents      Action = "browse_events"
	ActionBook              Action = "book"
	ActionPay               Action = "pay"
	ActionCreateEvent       Action = "create_event"
	ActionRequestSettlement Action = "request_settlement"
	ActionComment           Action = "comment"
	ActionReviewSettlement  Action = "review_settlement"
	ActionApproveOrganizers Action = "approve_organizers"
	ActionViewAnalytics     Action = "view_analytics"
)

// Policy maps every role to the actions it grants.
var Policy = map[model.Role][]Action{
	model.RoleAttendee: {
		ActionBrowseEvents, ActionBook, ActionPay,
	},
	model.RoleOrganizer: {
		ActionBrowseEvents, ActionCreateEvent, ActionRequestSettlement, ActionComment,
	},
	model.RoleAdmin: {
		ActionBrowseEvents, ActionCreateEvent, ActionComment, ActionReviewSettlement,
		ActionApproveOrganizers, ActionViewAnalytics,
	},
}

// Allows reports whether any of roles grants action.
func Allows(roles []model.Role, action Action) bool {
	for _, r := range roles {
		for _, a := range Policy[r] {
			if a == action {
				return true
			}
		}
	}
	return false
}

// CanAccess reports whether user holds at least one of the required
// roles.  A nil user never has access; an empty requirement grants none.
func CanAccess(user *model.User, required ...model.Role) bool {
	if user == nil {
		return false
	}
	return Intersects(user.Roles, required)
}

// Intersects reports whether the two role sets share a member.
func Intersects(have, want []model.Role) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
