package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/config"
	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/repository"
	"github.com/iliyamo/venuex-ticketing/internal/service"
	"github.com/iliyamo/venuex-ticketing/internal/testutil"
	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

const jwtSecret = "router-test-secret"

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type stubAnalytics struct{}

func (stubAnalytics) Summary(context.Context) (repository.Summary, error) {
	return repository.Summary{TotalRevenue: 10000, TotalBookings: 2}, nil
}
func (stubAnalytics) RevenueByDate(context.Context) (map[string]int64, error) {
	return map[string]int64{"2025-06-01": 10000}, nil
}
func (stubAnalytics) RevenueByEvent(context.Context) (map[string]int64, error) {
	return map[string]int64{"Rooftop Sessions": 10000}, nil
}
func (stubAnalytics) BookingDetails(context.Context, int) ([]repository.BookingRow, error) {
	return []repository.BookingRow{}, nil
}
func (stubAnalytics) EventDetails(context.Context, int) ([]repository.EventRow, error) {
	return []repository.EventRow{}, nil
}
func (stubAnalytics) OrganizerDetails(context.Context, int) ([]repository.OrganizerRow, error) {
	return []repository.OrganizerRow{}, nil
}

type api struct {
	e     *echo.Echo
	store *testutil.MemStore
	users *testutil.AuthStore
	gw    *service.HMACGateway
	clock *clock.Manual
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWithCache(t, nil)
}

// newAPIWithCache fronts the catalogue with the response cache when rdb
// is set.
func newAPIWithCache(t *testing.T, rdb redis.Cmdable) *api {
	t.Helper()
	a := &api{
		e:     echo.New(),
		store: testutil.NewMemStore(),
		users: testutil.NewAuthStore(),
		gw:    service.NewHMACGateway("pay-secret"),
		clock: clock.NewManual(t0),
	}
	a.store.SetNow(a.clock.Now)
	n := &testutil.RecordingNotifier{}
	cacheCfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, KeyStrategy: "route_query", Prefix: "test:cache",
	}
	var opts []service.BookingServiceOption
	invalidator := middleware.NewCacheInvalidator(cacheCfg, rdb)
	if invalidator != nil {
		opts = append(opts, service.WithInventoryWatcher(invalidator))
	}
	events := service.NewEventService(a.store, a.store.Events(), a.clock)
	bookings := service.NewBookingService(a.store, a.store.Events(), a.store.Bookings(), a.gw, n, a.clock, opts...)
	settlements := service.NewSettlementService(a.store, a.store.Events(), a.store.Bookings(),
		a.store.Settlements(), a.store.Comments(), n, a.clock)
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	Register(a.e, Handlers{
		Auth:        handler.NewAuthHandler(cfg, a.users, a.users),
		Events:      handler.NewEventHandler(events, invalidator),
		Bookings:    handler.NewBookingHandler(bookings),
		Settlements: handler.NewSettlementHandler(settlements),
		Analytics:   handler.NewAnalyticsHandler(stubAnalytics{}),
	}, Options{JWTSecret: jwtSecret, Cache: middleware.NewRedisCache(cacheCfg, rdb)})
	return a
}

func token(t *testing.T, id uint64, roles ...model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, id, roles, 15)
	require.NoError(t, err)
	return tok.Token
}

func (a *api) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRoleGates(t *testing.T) {
	a := newAPI(t)
	attendee := token(t, 20, model.RoleAttendee)
	organizer := token(t, 7, model.RoleOrganizer)
	admin := token(t, 1, model.RoleAdmin)

	cases := []struct {
		name, method, path, tok string
		want                    int
	}{
		{"anonymous browse", http.MethodGet, "/v1/events", "", http.StatusOK},
		{"anonymous booking", http.MethodPost, "/v1/bookings", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/v1/me", "garbage", http.StatusUnauthorized},
		{"attendee publishes", http.MethodPost, "/v1/events", attendee, http.StatusForbidden},
		{"organizer books", http.MethodPost, "/v1/bookings", organizer, http.StatusForbidden},
		{"attendee payouts", http.MethodGet, "/v1/payouts/me", attendee, http.StatusForbidden},
		{"organizer review queue", http.MethodGet, "/v1/settlements/admin/pending", organizer, http.StatusForbidden},
		{"attendee analytics", http.MethodGet, "/v1/admin/analytics", attendee, http.StatusForbidden},
		{"admin analytics", http.MethodGet, "/v1/admin/analytics", admin, http.StatusOK},
		{"admin review queue", http.MethodGet, "/v1/settlements/admin/pending", admin, http.StatusOK},
		{"organizer events", http.MethodGet, "/v1/organizer/events", organizer, http.StatusOK},
		{"admin organizer requests", http.MethodGet, "/v1/auth/organizer-requests", admin, http.StatusOK},
		{"organizer organizer requests", http.MethodGet, "/v1/auth/organizer-requests", organizer, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, tc.method, tc.path, tc.tok, nil)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			if tc.want >= 400 {
				assert.NotEmpty(t, decode(t, rec)["code"])
			}
		})
	}
}

func TestErrorEnvelope(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodGet, "/v1/events/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "event_not_found", body["code"])
	assert.NotEmpty(t, body["error"])

	rec = a.do(t, http.MethodGet, "/v1/events?mode=underwater", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode(t, rec)["code"])
}

func TestBookingAndPaymentFlow(t *testing.T) {
	a := newAPI(t)
	organizer := token(t, 7, model.RoleOrganizer)
	attendee := token(t, 20, model.RoleAttendee)

	rec := a.do(t, http.MethodPost, "/v1/events", organizer, echo.Map{
		"title":             "Jazz Night",
		"mode":              "offline",
		"venueName":         "Blue Room",
		"startsAt":          t0.Add(48 * time.Hour),
		"endsAt":            t0.Add(51 * time.Hour),
		"isPaid":            true,
		"ticketPrice":       500,
		"totalTickets":      10,
		"maxTicketsPerUser": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	eventID := uint64(decode(t, rec)["id"].(float64))

	rec = a.do(t, http.MethodGet, "/v1/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = a.do(t, http.MethodPost, "/v1/bookings", attendee, echo.Map{"eventId": eventID, "quantity": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "quantity_exceeds_limit", decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, "/v1/bookings", attendee, echo.Map{"eventId": eventID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode(t, rec)
	assert.Equal(t, "pending", booking["status"])
	assert.EqualValues(t, 1000, booking["totalAmount"])
	bookingID := uint64(booking["id"].(float64))

	rec = a.do(t, http.MethodPost, "/v1/bookings/create-order", attendee, echo.Map{"bookingId": bookingID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decode(t, rec)
	orderID := order["id"].(string)
	assert.EqualValues(t, 1000, order["amount"])

	forged := echo.Map{
		"bookingId":         bookingID,
		"providerOrderId":   orderID,
		"providerPaymentId": "pay_1",
		"providerSignature": "deadbeef",
	}
	rec = a.do(t, http.MethodPost, "/v1/bookings/verify-payment", attendee, forged)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "payment_verification_failed", decode(t, rec)["code"])

	proof := echo.Map{
		"bookingId":         bookingID,
		"providerOrderId":   orderID,
		"providerPaymentId": "pay_1",
		"providerSignature": a.gw.Sign(orderID, "pay_1"),
	}
	rec = a.do(t, http.MethodPost, "/v1/bookings/verify-payment", attendee, proof)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode(t, rec)["status"])

	rec = a.do(t, http.MethodPost, "/v1/bookings/confirm-payment", attendee, proof)
	assert.Equal(t, http.StatusOK, rec.Code, "replayed proof is accepted")

	rec = a.do(t, http.MethodGet, "/v1/bookings/me", attendee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeList(t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "confirmed", list[0]["displayStatus"])

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/%d/qr", bookingID), attendee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(decode(t, rec)["qr"].(string), "data:image/png;base64,"))

	other := token(t, 21, model.RoleAttendee)
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings/%d", bookingID), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPendingBookingExpiresAndCancels(t *testing.T) {
	a := newAPI(t)
	attendee := token(t, 20, model.RoleAttendee)
	ev := a.store.Events().Put(model.Event{
		OrganizerID: 7, Title: "Lecture", Mode: model.ModeOnline, OnlineLink: "https://example.test/live",
		StartsAt: t0.Add(time.Hour), EndsAt: t0.Add(2 * time.Hour),
		IsPaid: true, TicketPrice: 100, TotalTickets: 3, AvailableTickets: 3, MaxTicketsPerUser: 3,
		Status: model.EventPublished,
	})

	rec := a.do(t, http.MethodPost, "/v1/bookings", attendee, echo.Map{"eventId": ev.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := uint64(decode(t, rec)["id"].(float64))

	rec = a.do(t, http.MethodPost, "/v1/bookings/cancel", attendee, echo.Map{"bookingId": first})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode(t, rec)["status"])

	rec = a.do(t, http.MethodPost, "/v1/bookings", attendee, echo.Map{"eventId": ev.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := uint64(decode(t, rec)["id"].(float64))

	a.clock.Advance(16 * time.Minute)
	rec = a.do(t, http.MethodPost, "/v1/bookings/create-order", attendee, echo.Map{"bookingId": second})
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "booking_expired", decode(t, rec)["code"])

	got, err := a.store.Events().GetByID(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableTickets)
}

func TestSettlementFlow(t *testing.T) {
	a := newAPI(t)
	a.store.SetUserName(7, "Olive Organizer")
	a.store.SetUserName(1, "Ada Admin")
	organizer := token(t, 7, model.RoleOrganizer)
	admin := token(t, 1, model.RoleAdmin)

	ev := a.store.Events().Put(model.Event{
		OrganizerID: 7, Title: "Rooftop Sessions", Mode: model.ModeOffline, VenueName: "Roof",
		StartsAt: t0.Add(-4 * time.Hour), EndsAt: t0.Add(-time.Hour),
		IsPaid: true, TicketPrice: 1000, TotalTickets: 20, AvailableTickets: 10, MaxTicketsPerUser: 6,
		Status: model.EventPublished,
	})
	for _, amt := range []int64{6000, 4000} {
		a.store.Bookings().Put(model.Booking{
			EventID: ev.ID, UserID: 20, Quantity: int(amt / 1000), TotalAmount: amt, Status: model.BookingConfirmed,
		})
	}

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/v1/settlements/events/%d/revenue", ev.ID), organizer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 10000, decode(t, rec)["grossRevenue"])

	path := fmt.Sprintf("/v1/settlements/events/%d/request", ev.ID)
	rec = a.do(t, http.MethodPost, path, organizer, echo.Map{"notes": "thanks"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirmation_required", decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, path, organizer, echo.Map{"confirmNoFurtherBookings": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode(t, rec)
	assert.Equal(t, "requested", st["status"])
	assert.EqualValues(t, 9000, st["netPayableAmount"])
	id := uint64(st["id"].(float64))

	rec = a.do(t, http.MethodPost, "/v1/payouts/request", organizer, echo.Map{"eventId": ev.ID, "confirmNoFurtherBookings": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "settlement_already_exists", decode(t, rec)["code"])

	rec = a.do(t, http.MethodGet, "/v1/payouts/me", organizer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/settlements/%d/comment", id), organizer, echo.Map{"message": "when?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "organizer", decode(t, rec)["role"])

	rec = a.do(t, http.MethodGet, "/v1/settlements/admin/pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/v1/settlements/admin/%d", id), admin, echo.Map{"finalPayableAmount": 8500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 8500, decode(t, rec)["finalPayableAmount"])

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/settlements/admin/%d/paid", id), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/settlements/admin/%d/approve", id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode(t, rec)
	assert.Equal(t, "approved", approved["status"])
	assert.EqualValues(t, 8500, approved["finalPayableAmount"])

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/v1/settlements/admin/%d", id), admin, echo.Map{"finalPayableAmount": 1})
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "settlement_locked", decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/settlements/%d/comments", id), organizer, echo.Map{"message": "thanks"})
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "discussion_locked", decode(t, rec)["code"])

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/settlements/%d/comments", id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decodeList(t, rec)
	require.Len(t, comments, 1)
	assert.Equal(t, "Olive Organizer", comments[0]["authorName"])

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/settlements/admin/%d/paid", id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decode(t, rec)["status"])
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	adminID, err := a.users.Create(context.Background(), "Ada", "ada@example.test", "admin-pass-1", 4, model.RoleAdmin)
	require.NoError(t, err)
	admin := token(t, adminID, model.RoleAdmin)

	creds := echo.Map{"name": "Sam", "email": "Sam@Example.test", "password": "correct-horse"}
	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_exists", decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "sam@example.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "sam@example.test", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair struct {
		User    model.User `json:"user"`
		Access  struct{ Token string }
		Refresh struct{ Token string }
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.Equal(t, []model.Role{model.RoleAttendee}, pair.User.Roles)

	for _, p := range []string{"/v1/me", "/v1/auth/me"} {
		rec = a.do(t, http.MethodGet, p, pair.Access.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "sam@example.test", decode(t, rec)["email"])
	}

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refreshToken": pair.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refreshToken": pair.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated token cannot be reused")

	rec = a.do(t, http.MethodPost, "/v1/auth/request-organizer", pair.Access.Token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/v1/auth/organizer-requests", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	requests := decodeList(t, rec)
	require.Len(t, requests, 1)

	rec = a.do(t, http.MethodPost, "/v1/auth/approve-organizer", admin, echo.Map{"userId": pair.User.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.True(t, approved.HasRole(model.RoleOrganizer))
	assert.False(t, approved.OrganizerRequested)
}

func TestAnalyticsDetails(t *testing.T) {
	a := newAPI(t)
	admin := token(t, 1, model.RoleAdmin)

	rec := a.do(t, http.MethodGet, "/v1/admin/analytics", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 10000, body["summary"].(map[string]any)["totalRevenue"])
	assert.Contains(t, body["charts"], "revenueByEvent")

	rec = a.do(t, http.MethodGet, "/v1/admin/analytics/events", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/admin/analytics/refunds", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode(t, rec)["code"])
}

// mapRedis is the slice of redis.Cmdable the response cache uses, kept
// in a map.
type mapRedis struct {
	redis.Cmdable
	mu sync.Mutex
	kv map[string]string
}

func newMapRedis() *mapRedis { return &mapRedis{kv: map[string]string{}} }

func (m *mapRedis) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mapRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.kv[key] = string(v)
	default:
		m.kv[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *mapRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.kv {
		if strings.HasPrefix(k, strings.TrimSuffix(match, "*")) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (m *mapRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestCachedCatalogueFollowsBookings(t *testing.T) {
	a := newAPIWithCache(t, newMapRedis())
	attendee := token(t, 20, model.RoleAttendee)
	ev := a.store.Events().Put(model.Event{
		OrganizerID: 7, Title: "Jazz Night", Mode: model.ModeOffline, VenueName: "Blue Room",
		StartsAt: t0.Add(48 * time.Hour), EndsAt: t0.Add(51 * time.Hour),
		IsPaid: true, TicketPrice: 500, TotalTickets: 5, AvailableTickets: 5, MaxTicketsPerUser: 4,
		Status: model.EventPublished,
	})
	path := fmt.Sprintf("/v1/events/%d", ev.ID)

	available := func(wantCache string) float64 {
		t.Helper()
		rec := a.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, wantCache, rec.Header().Get("X-Cache"))
		return decode(t, rec)["availableTickets"].(float64)
	}
	listed := func() float64 {
		t.Helper()
		rec := a.do(t, http.MethodGet, "/v1/events", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		items := decode(t, rec)["items"].([]any)
		require.Len(t, items, 1)
		return items[0].(map[string]any)["availableTickets"].(float64)
	}

	assert.EqualValues(t, 5, available("MISS"))
	assert.EqualValues(t, 5, available("HIT"))
	assert.EqualValues(t, 5, listed())

	rec := a.do(t, http.MethodPost, "/v1/bookings", attendee, echo.Map{"eventId": ev.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bookingID := uint64(decode(t, rec)["id"].(float64))

	assert.EqualValues(t, 2, available("MISS"))
	assert.EqualValues(t, 2, listed())

	rec = a.do(t, http.MethodPost, "/v1/bookings/cancel", attendee, echo.Map{"bookingId": bookingID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 5, available("MISS"))
}

func TestCatalogueFilters(t *testing.T) {
	a := newAPI(t)
	organizer := token(t, 7, model.RoleOrganizer)
	for _, ev := range []echo.Map{
		{"title": "Indie Night", "subtitle": "Three bands", "category": "music", "city": "Pune", "ticketPrice": 800, "tags": []string{"live"}},
		{"title": "Go Meetup", "category": "tech", "city": "Pune", "ticketPrice": 100},
		{"title": "Open Mic", "category": "comedy", "city": "Delhi", "ticketPrice": 300},
	} {
		ev["mode"], ev["venueName"], ev["isPaid"] = "offline", "Hall", true
		ev["startsAt"], ev["endsAt"] = t0.Add(24*time.Hour), t0.Add(26*time.Hour)
		ev["totalTickets"], ev["maxTicketsPerUser"] = 10, 2
		rec := a.do(t, http.MethodPost, "/v1/events", organizer, ev)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	titles := func(query string) []string {
		t.Helper()
		rec := a.do(t, http.MethodGet, "/v1/events"+query, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []string
		for _, it := range decode(t, rec)["items"].([]any) {
			out = append(out, it.(map[string]any)["title"].(string))
		}
		return out
	}
	assert.Equal(t, []string{"Go Meetup", "Open Mic", "Indie Night"}, titles("?sort=price"))
	assert.Equal(t, []string{"Indie Night", "Go Meetup"}, titles("?city=pune"))
	assert.Equal(t, []string{"Open Mic"}, titles("?category=comedy"))
	assert.Equal(t, []string{"Indie Night"}, titles("?q=bands"))

	rec := a.do(t, http.MethodGet, "/v1/events?category=music", "", nil)
	item := decode(t, rec)["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Three bands", item["subtitle"])
	assert.Equal(t, []any{"live"}, item["tags"])

	for _, q := range []string{"?category=opera", "?sort=newest"} {
		rec := a.do(t, http.MethodGet, "/v1/events"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, "invalid_input", decode(t, rec)["code"], q)
	}
}

func TestRejectNeedsWellFormedBody(t *testing.T) {
	a := newAPI(t)
	admin := token(t, 1, model.RoleAdmin)
	ev := a.store.Events().Put(model.Event{
		OrganizerID: 7, Title: "Rooftop Sessions", Mode: model.ModeOffline, VenueName: "Roof",
		StartsAt: t0.Add(-4 * time.Hour), EndsAt: t0.Add(-time.Hour),
		TotalTickets: 20, AvailableTickets: 20, MaxTicketsPerUser: 6, Status: model.EventPublished,
	})
	st := model.Settlement{EventID: ev.ID, OrganizerID: 7, Status: model.SettlementRequested}
	require.NoError(t, a.store.Settlements().Create(context.Background(), &st))
	path := fmt.Sprintf("/v1/settlements/admin/%d/reject", st.ID)

	rec := a.do(t, http.MethodPost, path, admin, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode(t, rec)["code"])

	rec = a.do(t, http.MethodPost, path, admin, echo.Map{"adminNotes": "missing invoices"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "rejected", body["status"])
	assert.Equal(t, "missing invoices", body["adminNotes"])
}
