package model

import "time"

// EventMode describes how attendees take part in an event.
type EventMode string

const (
	ModeOnline  EventMode = "online"
	ModeOffline EventMode = "offline"
	ModeHybrid  EventMode = "hybrid"
)

// Valid reports whether m is one of the known modes.
func (m EventMode) Valid() bool {
	switch m {
	case ModeOnline, ModeOffline, ModeHybrid:
		return true
	}
	return false
}

// EventCategory groups events in the catalogue.
type EventCategory string

const (
	CategoryMusic    EventCategory = "music"
	CategoryTech     EventCategory = "tech"
	CategorySports   EventCategory = "sports"
	CategoryComedy   EventCategory = "comedy"
	CategoryWorkshop EventCategory = "workshop"
	CategoryMeetup   EventCategory = "meetup"
)

// Categories lists every known category in display order.
var Categories = []EventCategory{
	CategoryMusic, CategoryTech, CategorySports, CategoryComedy, CategoryWorkshop, CategoryMeetup,
}

// Valid reports whether c is one of Categories.
func (c EventCategory) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// Event is a ticketed happening published by an organizer.  It
// corresponds to a row in the `events` table.  AvailableTickets only
// moves down when a booking is created and back up when a pending
// booking is cancelled or expires; it never leaves [0, TotalTickets].
//
// Fields:
//  ID                – primary key identifier.
//  OrganizerID       – user who published the event.
//  Category          – catalogue section the event is listed under.
//  Tags              – free-form labels shown with the event.
//  Mode              – online, offline or hybrid.
//  Address .. Country – postal location of the venue, if any.
//  StartsAt / EndsAt – UTC start and end of the event.
//  Timezone          – IANA zone used for display.
//  IsPaid            – whether bookings require payment.
//  TicketPrice       – price per ticket in whole currency units.
//  TotalTickets      – capacity of the event.
//  AvailableTickets  – tickets not yet taken by a live booking.
//  MaxTicketsPerUser – upper bound on a single booking's quantity.
type Event struct {
	ID                uint64        `json:"id"`                // events.id
	OrganizerID       uint64        `json:"organizerId"`       // events.organizer_id
	Title             string        `json:"title"`             // events.title
	Subtitle          string        `json:"subtitle"`          // events.subtitle
	Description       string        `json:"description"`       // events.description
	Category          EventCategory `json:"category"`          // events.category
	Tags              []string      `json:"tags"`              // events.tags (JSON array)
	CoverImage        string        `json:"coverImage"`        // events.cover_image
	Mode              EventMode     `json:"mode"`              // events.mode
	VenueName         string        `json:"venueName"`         // events.venue_name
	Address           string        `json:"address"`           // events.address
	City              string        `json:"city"`              // events.city
	State             string        `json:"state"`             // events.state
	Country           string        `json:"country"`           // events.country
	OnlineLink        string        `json:"onlineLink"`        // events.online_link
	StartsAt          time.Time     `json:"startsAt"`          // events.starts_at
	EndsAt            time.Time     `json:"endsAt"`            // events.ends_at
	Timezone          string        `json:"timezone"`          // events.timezone
	IsPaid            bool          `json:"isPaid"`            // events.is_paid
	TicketPrice       int64         `json:"ticketPrice"`       // events.ticket_price
	TotalTickets      int           `json:"totalTickets"`      // events.total_tickets
	AvailableTickets  int           `json:"availableTickets"`  // events.available_tickets
	MaxTicketsPerUser int           `json:"maxTicketsPerUser"` // events.max_tickets_per_user
	Status            EventStatus   `json:"status"`            // events.status
	CreatedAt         time.Time     `json:"createdAt"`         // events.created_at
	UpdatedAt         time.Time     `json:"updatedAt"`         // events.updated_at
}

// HasEnded reports whether the event finished strictly before now.
func (e Event) HasEnded(now time.Time) bool {
	return e.EndsAt.Before(now)
}
