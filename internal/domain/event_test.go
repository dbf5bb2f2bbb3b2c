package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

func validEvent() model.Event {
	start := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	return model.Event{
		Title: "Gophercon", Category: model.CategoryTech, Tags: []string{"go"}, Mode: model.ModeHybrid, VenueName: "Hall A", OnlineLink: "https://stream",
		StartsAt: start, EndsAt: start.Add(3 * time.Hour), Timezone: "Asia/Kolkata",
		IsPaid: true, TicketPrice: 500, TotalTickets: 100, MaxTicketsPerUser: 4,
	}
}

func TestValidateEvent(t *testing.T) {
	require.NoError(t, ValidateEvent(validEvent()))

	mutations := map[string]func(*model.Event){
		"no title":      func(e *model.Event) { e.Title = " " },
		"bad mode":      func(e *model.Event) { e.Mode = "zoom" },
		"bad category":  func(e *model.Event) { e.Category = "opera" },
		"no category":   func(e *model.Event) { e.Category = "" },
		"many tags":     func(e *model.Event) { e.Tags = make([]string, 11) },
		"no link":       func(e *model.Event) { e.OnlineLink = "" },
		"no venue":      func(e *model.Event) { e.VenueName = "" },
		"ends early":    func(e *model.Event) { e.EndsAt = e.StartsAt },
		"no capacity":   func(e *model.Event) { e.TotalTickets = 0 },
		"no limit":      func(e *model.Event) { e.MaxTicketsPerUser = 0 },
		"paid no price": func(e *model.Event) { e.TicketPrice = 0 },
		"free priced":   func(e *model.Event) { e.IsPaid = false },
		"bad zone":      func(e *model.Event) { e.Timezone = "Mars/Base" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			e := validEvent()
			mutate(&e)
			assert.ErrorIs(t, ValidateEvent(e), ErrInvalidInput)
		})
	}
}

func TestResizeInventory(t *testing.T) {
	e := model.Event{TotalTickets: 100, AvailableTickets: 60}

	avail, err := ResizeInventory(e, 120)
	require.NoError(t, err)
	assert.Equal(t, 80, avail)

	avail, err = ResizeInventory(e, 40)
	require.NoError(t, err)
	assert.Equal(t, 0, avail)

	_, err = ResizeInventory(e, 39)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
