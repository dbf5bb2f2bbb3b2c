package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/config"
	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/router"
	"github.com/iliyamo/venuex-ticketing/internal/service"
	"github.com/iliyamo/venuex-ticketing/internal/testutil"
	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

const (
	jwtSecret = "cli-test-secret"
	paySecret = "pay-secret"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newAPI(t *testing.T) (string, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	clk := clock.NewManual(t0)
	store.SetNow(clk.Now)
	n := &testutil.RecordingNotifier{}
	users := testutil.NewAuthStore()
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, users),
		Events:   handler.NewEventHandler(service.NewEventService(store, store.Events(), clk), nil),
		Bookings: handler.NewBookingHandler(service.NewBookingService(store, store.Events(), store.Bookings(), service.NewHMACGateway(paySecret), n, clk)),
		Settlements: handler.NewSettlementHandler(service.NewSettlementService(store, store.Events(), store.Bookings(),
			store.Settlements(), store.Comments(), n, clk)),
	}, router.Options{JWTSecret: jwtSecret})

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts.URL, store
}

func tokenFor(t *testing.T, id uint64, roles ...model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, id, roles, 15)
	require.NoError(t, err)
	return tok.Token
}

func exec(t *testing.T, url, token string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"--api", url, "--token", token}, args...)
	err := run(context.Background(), full, &out)
	return out.String(), err
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), nil, &out)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "request-settlement")
	assert.Contains(t, out.String(), "--api")

	out.Reset()
	err = run(context.Background(), []string{"bogus"}, &out)
	assert.EqualError(t, err, `unknown command "bogus"`)

	out.Reset()
	assert.NoError(t, run(context.Background(), []string{"--help"}, &out))
	assert.Contains(t, out.String(), "Commands:")
}

func TestMissingIDs(t *testing.T) {
	url, _ := newAPI(t)
	for _, args := range [][]string{
		{"book"},
		{"status"},
		{"approve"},
		{"pay", "--booking", "3"},
	} {
		_, err := exec(t, url, "", args...)
		assert.Error(t, err, args)
	}
}

func TestBookAndPay(t *testing.T) {
	url, store := newAPI(t)
	ev := store.Events().Put(model.Event{
		OrganizerID: 1, Title: "Jazz Night", Category: model.CategoryMusic, City: "Pune",
		Mode: model.ModeOffline, VenueName: "Blue Room",
		StartsAt: t0.Add(48 * time.Hour), EndsAt: t0.Add(51 * time.Hour),
		IsPaid: true, TicketPrice: 500, TotalTickets: 10, AvailableTickets: 10, MaxTicketsPerUser: 4,
		Status: model.EventPublished,
	})
	tok := tokenFor(t, 7, model.RoleAttendee)

	out, err := exec(t, url, "", "events", "-q", "jazz")
	require.NoError(t, err)
	assert.Contains(t, out, "Jazz Night")

	out, err = exec(t, url, "", "events", "--category", "Music", "--city", "pune", "--sort", "popular")
	require.NoError(t, err)
	assert.Contains(t, out, "Jazz Night")
	out, err = exec(t, url, "", "events", "--category", "comedy")
	require.NoError(t, err)
	assert.NotContains(t, out, "Jazz Night")
	_, err = exec(t, url, "", "events", "--sort", "newest")
	require.Error(t, err)

	out, err = exec(t, url, tok, "book", "--event", strconv.FormatUint(ev.ID, 10), "--qty", "2")
	require.NoError(t, err)
	var b struct {
		ID          uint64 `json:"id"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"totalAmount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "pending", b.Status)
	assert.EqualValues(t, 1000, b.TotalAmount)
	id := strconv.FormatUint(b.ID, 10)

	_, err = exec(t, url, tok, "pay", "--booking", id, "--secret", "wrong")
	require.Error(t, err)

	out, err = exec(t, url, tok, "pay", "--booking", id, "--secret", paySecret)
	require.NoError(t, err)
	assert.Contains(t, out, "paying order")
	assert.Contains(t, out, `"status": "confirmed"`)

	out, err = exec(t, url, tok, "qr", "--booking", id)
	require.NoError(t, err)
	assert.Contains(t, out, "data:image/png;base64,")
}

func TestSettlementCommandsNeedAdmin(t *testing.T) {
	url, _ := newAPI(t)
	_, err := exec(t, url, tokenFor(t, 2, model.RoleOrganizer), "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	out, err := exec(t, url, tokenFor(t, 9, model.RoleAdmin), "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "[]")
}
