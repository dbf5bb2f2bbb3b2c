package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venuex-ticketing/internal/clock"
	"github.com/iliyamo/venuex-ticketing/internal/config"
	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/handler"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/router"
	"github.com/iliyamo/venuex-ticketing/internal/service"
	"github.com/iliyamo/venuex-ticketing/internal/testutil"
	"github.com/iliyamo/venuex-ticketing/internal/utils"
)

const jwtSecret = "client-test-secret"

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type server struct {
	url   string
	store *testutil.MemStore
	gw    *service.HMACGateway
	clock *clock.Manual
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{
		store: testutil.NewMemStore(),
		gw:    service.NewHMACGateway("pay-secret"),
		clock: clock.NewManual(t0),
	}
	s.store.SetNow(s.clock.Now)
	n := &testutil.RecordingNotifier{}
	users := testutil.NewAuthStore()
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, users),
		Events:   handler.NewEventHandler(service.NewEventService(s.store, s.store.Events(), s.clock), nil),
		Bookings: handler.NewBookingHandler(service.NewBookingService(s.store, s.store.Events(), s.store.Bookings(), s.gw, n, s.clock)),
		Settlements: handler.NewSettlementHandler(service.NewSettlementService(s.store, s.store.Events(), s.store.Bookings(),
			s.store.Settlements(), s.store.Comments(), n, s.clock)),
	}, router.Options{JWTSecret: jwtSecret})

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	s.url = ts.URL
	return s
}

func (s *server) client(t *testing.T, clk clock.Clock) *Client {
	t.Helper()
	if clk == nil {
		clk = s.clock
	}
	c, err := New(Config{BaseURL: s.url, Clock: clk})
	require.NoError(t, err)
	return c
}

func (s *server) paidEvent(organizerID uint64) model.Event {
	return s.store.Events().Put(model.Event{
		OrganizerID: organizerID, Title: "Jazz Night", Mode: model.ModeOffline, VenueName: "Blue Room",
		StartsAt: t0.Add(48 * time.Hour), EndsAt: t0.Add(51 * time.Hour),
		IsPaid: true, TicketPrice: 500, TotalTickets: 10, AvailableTickets: 10, MaxTicketsPerUser: 4,
		Status: model.EventPublished,
	})
}

func signIn(t *testing.T, c *Client, id uint64, roles ...model.Role) {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, id, roles, 15)
	require.NoError(t, err)
	c.SetToken(tok.Token)
}

type widgetFunc func(ctx context.Context, order model.PaymentOrder) (model.PaymentProof, error)

func (f widgetFunc) Collect(ctx context.Context, order model.PaymentOrder) (model.PaymentProof, error) {
	return f(ctx, order)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"known code", http.StatusConflict, `{"error":"inventory exhausted","code":"inventory_exhausted"}`, domain.ErrInventoryExhausted},
		{"locked", http.StatusLocked, `{"error":"discussion locked","code":"discussion_locked"}`, domain.ErrDiscussionLocked},
		{"unknown 5xx", http.StatusInternalServerError, `{"error":"internal error","code":"internal"}`, domain.ErrUpstreamUnavailable},
		{"proxy page", http.StatusBadGateway, `<html>bad gateway</html>`, domain.ErrUpstreamUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()
			c, err := New(Config{BaseURL: ts.URL})
			require.NoError(t, err)

			_, err = c.CreateBooking(context.Background(), 1, 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
		})
	}

	t.Run("unknown 4xx keeps the code", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"email already exists","code":"email_exists"}`))
		}))
		defer ts.Close()
		c, err := New(Config{BaseURL: ts.URL})
		require.NoError(t, err)

		_, err = c.Register(context.Background(), "Sam", "sam@example.test", "correct-horse")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "email_exists", apiErr.Code)
		assert.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("transport failure", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()
		c, err := New(Config{BaseURL: url})
		require.NoError(t, err)
		_, err = c.MyBookings(context.Background())
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestPaymentBridge(t *testing.T) {
	s := newServer(t)
	ev := s.paidEvent(7)
	c := s.client(t, nil)
	ctx := context.Background()

	_, err := c.Register(ctx, "Sam", "sam@example.test", "correct-horse")
	require.NoError(t, err)

	b, err := c.CreateBooking(ctx, ev.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.True(t, b.Actions.CanPay)

	abandon := NewPaymentBridge(c, widgetFunc(func(context.Context, model.PaymentOrder) (model.PaymentProof, error) {
		return model.PaymentProof{}, ErrPaymentAbandoned
	}))
	_, err = abandon.Pay(ctx, b.ID)
	assert.ErrorIs(t, err, ErrPaymentAbandoned)

	tamper := NewPaymentBridge(c, widgetFunc(func(_ context.Context, o model.PaymentOrder) (model.PaymentProof, error) {
		return model.PaymentProof{ProviderOrderID: o.OrderID, ProviderPaymentID: "pay_1", ProviderSignature: "00"}, nil
	}))
	_, err = tamper.Pay(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)
	res, err := c.ResolveStatus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, res.Status, "a rejected proof leaves the booking payable")

	var collected []model.PaymentOrder
	honest := NewPaymentBridge(c, widgetFunc(func(_ context.Context, o model.PaymentOrder) (model.PaymentProof, error) {
		collected = append(collected, o)
		return model.PaymentProof{
			ProviderOrderID:   o.OrderID,
			ProviderPaymentID: "pay_2",
			ProviderSignature: s.gw.Sign(o.OrderID, "pay_2"),
		}, nil
	}))
	res, err = honest.Pay(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, res.Status)
	assert.True(t, res.Actions.ShowTicket)
	require.Len(t, collected, 1)
	assert.EqualValues(t, 1000, collected[0].Amount)
	assert.Equal(t, "INR", collected[0].Currency)

	_, err = honest.Pay(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrBookingExpired, "a confirmed booking cannot be ordered again")

	qr, err := c.TicketQR(ctx, b.ID)
	require.NoError(t, err)
	assert.Contains(t, qr, "data:image/png;base64,")

	got, err := c.Event(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.AvailableTickets)
}

func TestPaymentBridgeRejectsForeignOrder(t *testing.T) {
	s := newServer(t)
	ev := s.paidEvent(7)
	c := s.client(t, nil)
	signIn(t, c, 20, model.RoleAttendee)
	ctx := context.Background()

	b, err := c.CreateBooking(ctx, ev.ID, 1)
	require.NoError(t, err)
	bridge := NewPaymentBridge(c, widgetFunc(func(context.Context, model.PaymentOrder) (model.PaymentProof, error) {
		return model.PaymentProof{ProviderOrderID: "order_other", ProviderPaymentID: "pay_1", ProviderSignature: "x"}, nil
	}))
	_, err = bridge.Pay(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)
}

func TestResolveStatusUsesLocalClock(t *testing.T) {
	s := newServer(t)
	ev := s.paidEvent(7)
	local := clock.NewManual(t0)
	c := s.client(t, local)
	signIn(t, c, 20, model.RoleAttendee)
	ctx := context.Background()

	b, err := c.CreateBooking(ctx, ev.ID, 1)
	require.NoError(t, err)

	local.Advance(16 * time.Minute)
	res, err := c.ResolveStatus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, res.Booking.Status, "server has not swept yet")
	assert.Equal(t, model.BookingExpired, res.Status)
	assert.False(t, res.Actions.CanPay)
}

func TestSettlementReviewThroughClient(t *testing.T) {
	s := newServer(t)
	s.store.SetUserName(7, "Olive Organizer")
	ev := s.store.Events().Put(model.Event{
		OrganizerID: 7, Title: "Rooftop Sessions", Mode: model.ModeOffline, VenueName: "Roof",
		StartsAt: t0.Add(-4 * time.Hour), EndsAt: t0.Add(-time.Hour),
		IsPaid: true, TicketPrice: 1000, TotalTickets: 10, AvailableTickets: 0, MaxTicketsPerUser: 10,
		Status: model.EventPublished,
	})
	s.store.Bookings().Put(model.Booking{EventID: ev.ID, UserID: 20, Quantity: 10, TotalAmount: 10000, Status: model.BookingConfirmed})
	ctx := context.Background()

	org := s.client(t, nil)
	signIn(t, org, 7, model.RoleOrganizer)
	adm := s.client(t, nil)
	signIn(t, adm, 1, model.RoleAdmin)

	_, err := org.RequestSettlement(ctx, ev.ID, "", false)
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)

	st, err := org.RequestSettlement(ctx, ev.ID, "payout please", true)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, st.PlatformFeeAmount)
	assert.EqualValues(t, 9000, st.NetPayableAmount)

	_, err = org.RequestSettlement(ctx, ev.ID, "again", true)
	assert.ErrorIs(t, err, domain.ErrSettlementAlreadyExists)

	_, err = org.PostComment(ctx, st.ID, "bank details sent")
	require.NoError(t, err)

	final := int64(8500)
	st, err = adm.AdjustSettlement(ctx, st.ID, Adjustment{FinalPayableAmount: &final})
	require.NoError(t, err)
	st, err = adm.ApproveSettlement(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementApproved, st.Status)
	assert.EqualValues(t, 8500, st.FinalPayableAmount)
	assert.EqualValues(t, 9000, st.NetPayableAmount)

	_, err = adm.RejectSettlement(ctx, st.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = org.PostComment(ctx, st.ID, "thanks")
	assert.ErrorIs(t, err, domain.ErrDiscussionLocked)

	thread, err := org.Comments(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "Olive Organizer", thread[0].AuthorName)

	st, err = adm.MarkPaid(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementPaid, st.Status)

	mine, err := org.MySettlements(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.SettlementPaid, mine[0].Status)
}

type staticProvider struct {
	user *model.User
	err  error
}

func (p *staticProvider) CurrentUser(context.Context) (*model.User, error) { return p.user, p.err }

func TestSessionAndGate(t *testing.T) {
	p := &staticProvider{}
	sess := NewSession(p)
	gate := Gate{Session: sess}

	var seen []*model.User
	unsubscribe := sess.Subscribe(func(u *model.User) { seen = append(seen, u) })

	assert.Equal(t, RedirectLogin, gate.Decide(model.RoleOrganizer, model.RoleAdmin))

	p.user = &model.User{ID: 3, Roles: []model.Role{model.RoleAttendee}}
	require.NoError(t, sess.Refresh(context.Background()))
	assert.Equal(t, RedirectHome, gate.Decide(model.RoleOrganizer, model.RoleAdmin))
	assert.Equal(t, Allow, gate.Decide(model.RoleAttendee))

	p.user = &model.User{ID: 3, Roles: []model.Role{model.RoleAttendee, model.RoleOrganizer}}
	require.NoError(t, sess.Refresh(context.Background()))
	assert.Equal(t, Allow, gate.Decide(model.RoleOrganizer, model.RoleAdmin))
	assert.True(t, gate.Can(domain.ActionRequestSettlement))
	assert.False(t, gate.Can(domain.ActionReviewSettlement))

	p.err = domain.ErrUpstreamUnavailable
	assert.Error(t, sess.Refresh(context.Background()))
	assert.NotNil(t, sess.User(), "a failed refresh keeps the cached user")

	unsubscribe()
	sess.Clear()
	assert.Nil(t, sess.User())
	assert.Len(t, seen, 2)
	assert.Equal(t, RedirectLogin, gate.Decide(model.RoleAttendee))
	assert.False(t, gate.Can(domain.ActionBrowseEvents))
}

func TestClientAsUserProvider(t *testing.T) {
	s := newServer(t)
	c := s.client(t, nil)
	ctx := context.Background()

	u, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	c.SetToken("expired-or-forged")
	u, err = c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	pair, err := c.Register(ctx, "Sam", "sam@example.test", "correct-horse")
	require.NoError(t, err)
	sess := NewSession(c)
	require.NoError(t, sess.Refresh(ctx))
	require.NotNil(t, sess.User())
	assert.Equal(t, pair.User.ID, sess.User().ID)
	assert.Equal(t, Allow, Gate{Session: sess}.Decide(model.RoleAttendee))
}

func TestEventQueryEncode(t *testing.T) {
	assert.Equal(t, "", EventQuery{}.encode())
	q := EventQuery{Query: "jazz", Category: model.CategoryMusic, City: "Pune", Sort: "price", IncludePast: true, Page: 2}
	assert.Equal(t, "?category=music&city=Pune&page=2&q=jazz&sort=price&upcoming=false", q.encode())
}
