package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

const maxTags = 10

// ValidateEvent checks the fields an organizer supplies when publishing
// or editing an event.
func ValidateEvent(e model.Event) error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return invalid("title is required")
	case !e.Mode.Valid():
		return invalid("mode must be online, offline or hybrid")
	case !e.Category.Valid():
		return invalid("unknown category")
	case len(e.Tags) > maxTags:
		return invalid(fmt.Sprintf("at most %d tags", maxTags))
	case e.Mode != model.ModeOffline && strings.TrimSpace(e.OnlineLink) == "":
		return invalid("online link is required for online and hybrid events")
	case e.Mode != model.ModeOnline && strings.TrimSpace(e.VenueName) == "":
		return invalid("venue is required for offline and hybrid events")
	case e.StartsAt.IsZero() || !e.EndsAt.After(e.StartsAt):
		return invalid("event must end after it starts")
	case e.TotalTickets < 1:
		return invalid("total tickets must be positive")
	case e.MaxTicketsPerUser < 1:
		return invalid("max tickets per user must be positive")
	case e.IsPaid && e.TicketPrice <= 0:
		return invalid("paid events need a positive ticket price")
	case !e.IsPaid && e.TicketPrice != 0:
		return invalid("free events cannot have a ticket price")
	}
	if e.Timezone != "" {
		if _, err := time.LoadLocation(e.Timezone); err != nil {
			return invalid("unknown timezone")
		}
	}
	return nil
}

// ResizeInventory returns the available count after changing an event's
// capacity to total.  Tickets already sold stay sold, so capacity cannot
// drop below them.
func ResizeInventory(e model.Event, total int) (int, error) {
	sold := e.TotalTickets - e.AvailableTickets
	if total < sold {
		return 0, invalid(fmt.Sprintf("capacity cannot drop below %d tickets already taken", sold))
	}
	return total - sold, nil
}
