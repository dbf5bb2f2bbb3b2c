package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venuex-ticketing/internal/client"
	"github.com/iliyamo/venuex-ticketing/internal/model"
	"github.com/iliyamo/venuex-ticketing/internal/service"
)

var commands = map[string]command{
	"login":              {"sign in and print the token pair", cmdLogin},
	"me":                 {"show the signed-in user", cmdMe},
	"events":             {"search the public catalogue", cmdEvents},
	"book":               {"book tickets for an event", cmdBook},
	"bookings":           {"list my bookings", cmdBookings},
	"status":             {"resolve a booking's current status", cmdStatus},
	"cancel":             {"cancel a pending booking", cmdCancel},
	"order":              {"request a payment order for a booking", cmdOrder},
	"verify":             {"submit a payment proof", cmdVerify},
	"pay":                {"pay a booking through the sandbox checkout", cmdPay},
	"qr":                 {"print the entry QR code of a confirmed booking", cmdQR},
	"revenue":            {"preview an event's settlement figures", cmdRevenue},
	"request-settlement": {"request the settlement of an ended event", cmdRequestSettlement},
	"settlements":        {"list my settlements", cmdSettlements},
	"pending":            {"list settlements awaiting review (admin)", cmdPending},
	"settlement":         {"show a settlement (admin)", cmdSettlement},
	"adjust":             {"adjust fee, final amount or notes (admin)", cmdAdjust},
	"review":             {"open a settlement for review (admin)", transition("review")},
	"approve":            {"approve a settlement (admin)", transition("approve")},
	"reject":             {"reject a settlement (admin)", transition("reject")},
	"paid":               {"mark a settlement paid (admin)", transition("paid")},
	"comments":           {"show a settlement's discussion", cmdComments},
	"comment":            {"post to a settlement's discussion", cmdComment},
}

func cmdLogin(ctx context.Context, e env, args []string) error {
	fs := flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pair, err := e.api.Login(ctx, trimmed(*email), *password)
	if err != nil {
		return err
	}
	return e.print(pair)
}

func cmdMe(ctx context.Context, e env, _ []string) error {
	u, err := e.api.Me(ctx)
	if err != nil {
		return err
	}
	return e.print(u)
}

func cmdEvents(ctx context.Context, e env, args []string) error {
	fs := flags("events")
	var q client.EventQuery
	fs.StringVarP(&q.Query, "query", "q", "", "text to search in title, subtitle and description")
	mode := fs.String("mode", "", "online, offline or hybrid")
	category := fs.String("category", "", "music, tech, sports, comedy, workshop or meetup")
	fs.StringVar(&q.City, "city", "", "only events in this city")
	fs.StringVar(&q.Sort, "sort", "", "date, price or popular")
	fs.BoolVar(&q.IncludePast, "all", false, "include events that already started")
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.PageSize, "page-size", 20, "events per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q.Mode = model.EventMode(strings.ToLower(*mode))
	q.Category = model.EventCategory(strings.ToLower(*category))
	page, err := e.api.ListEvents(ctx, q)
	if err != nil {
		return err
	}
	return e.print(page)
}

func cmdBook(ctx context.Context, e env, args []string) error {
	fs := flags("book")
	eventID := fs.Uint64("event", 0, "event id")
	qty := fs.Int("qty", 1, "number of tickets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("event", *eventID); err != nil {
		return err
	}
	b, err := e.api.CreateBooking(ctx, *eventID, *qty)
	if err != nil {
		return err
	}
	return e.print(b)
}

func cmdBookings(ctx context.Context, e env, _ []string) error {
	list, err := e.api.MyBookings(ctx)
	if err != nil {
		return err
	}
	return e.print(list)
}

func bookingFlag(name string, args []string) (uint64, error) {
	fs := flags(name)
	id := fs.Uint64("booking", 0, "booking id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return *id, requireID("booking", *id)
}

func cmdStatus(ctx context.Context, e env, args []string) error {
	id, err := bookingFlag("status", args)
	if err != nil {
		return err
	}
	res, err := e.api.ResolveStatus(ctx, id)
	if err != nil {
		return err
	}
	return e.print(map[string]any{"bookingId": id, "status": res.Status, "actions": res.Actions})
}

func cmdCancel(ctx context.Context, e env, args []string) error {
	id, err := bookingFlag("cancel", args)
	if err != nil {
		return err
	}
	b, err := e.api.CancelBooking(ctx, id)
	if err != nil {
		return err
	}
	return e.print(b)
}

func cmdOrder(ctx context.Context, e env, args []string) error {
	id, err := bookingFlag("order", args)
	if err != nil {
		return err
	}
	o, err := e.api.CreatePaymentOrder(ctx, id)
	if err != nil {
		return err
	}
	return e.print(o)
}

func cmdVerify(ctx context.Context, e env, args []string) error {
	fs := flags("verify")
	var p model.PaymentProof
	fs.Uint64Var(&p.BookingID, "booking", 0, "booking id")
	fs.StringVar(&p.ProviderOrderID, "order", "", "provider order id")
	fs.StringVar(&p.ProviderPaymentID, "payment", "", "provider payment id")
	fs.StringVar(&p.ProviderSignature, "signature", "", "provider signature")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("booking", p.BookingID); err != nil {
		return err
	}
	b, err := e.api.VerifyPayment(ctx, p)
	if err != nil {
		return err
	}
	return e.print(b)
}

// sandboxWidget pays every order instantly, signing the proof with the
// shared payment secret the way the provider would.  It is meant for
// local and staging servers.
type sandboxWidget struct {
	gw  *service.HMACGateway
	out io.Writer
}

func (w sandboxWidget) Collect(_ context.Context, o model.PaymentOrder) (model.PaymentProof, error) {
	fmt.Fprintf(w.out, "paying order %s: %d %s\n", o.OrderID, o.Amount, o.Currency)
	paymentID := "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return model.PaymentProof{
		ProviderOrderID:   o.OrderID,
		ProviderPaymentID: paymentID,
		ProviderSignature: w.gw.Sign(o.OrderID, paymentID),
	}, nil
}

func cmdPay(ctx context.Context, e env, args []string) error {
	fs := flags("pay")
	id := fs.Uint64("booking", 0, "booking id")
	secret := fs.String("secret", "", "sandbox payment secret (PAYMENT_KEY_SECRET of the server)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("booking", *id); err != nil {
		return err
	}
	if *secret == "" {
		return fmt.Errorf("--secret is required")
	}
	bridge := client.NewPaymentBridge(e.api, sandboxWidget{gw: service.NewHMACGateway(*secret), out: e.out})
	res, err := bridge.Pay(ctx, *id)
	if err != nil {
		return err
	}
	return e.print(map[string]any{"bookingId": *id, "status": res.Status, "actions": res.Actions})
}

func cmdQR(ctx context.Context, e env, args []string) error {
	id, err := bookingFlag("qr", args)
	if err != nil {
		return err
	}
	qr, err := e.api.TicketQR(ctx, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, qr)
	return err
}

func eventFlag(name string, args []string) (uint64, error) {
	fs := flags(name)
	id := fs.Uint64("event", 0, "event id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return *id, requireID("event", *id)
}

func cmdRevenue(ctx context.Context, e env, args []string) error {
	id, err := eventFlag("revenue", args)
	if err != nil {
		return err
	}
	sum, err := e.api.Revenue(ctx, id)
	if err != nil {
		return err
	}
	return e.print(sum)
}

func cmdRequestSettlement(ctx context.Context, e env, args []string) error {
	fs := flags("request-settlement")
	eventID := fs.Uint64("event", 0, "event id")
	notes := fs.String("notes", "", "notes for the reviewer")
	confirm := fs.Bool("confirm", false, "confirm no further bookings will be counted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("event", *eventID); err != nil {
		return err
	}
	st, err := e.api.RequestSettlement(ctx, *eventID, *notes, *confirm)
	if err != nil {
		return err
	}
	return e.print(st)
}

func cmdSettlements(ctx context.Context, e env, _ []string) error {
	list, err := e.api.MySettlements(ctx)
	if err != nil {
		return err
	}
	return e.print(list)
}

func cmdPending(ctx context.Context, e env, _ []string) error {
	list, err := e.api.PendingSettlements(ctx)
	if err != nil {
		return err
	}
	return e.print(list)
}

func settlementFlag(name string, args []string) (uint64, error) {
	fs := flags(name)
	id := fs.Uint64("id", 0, "settlement id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return *id, requireID("id", *id)
}

func cmdSettlement(ctx context.Context, e env, args []string) error {
	id, err := settlementFlag("settlement", args)
	if err != nil {
		return err
	}
	st, err := e.api.Settlement(ctx, id)
	if err != nil {
		return err
	}
	return e.print(st)
}

func cmdAdjust(ctx context.Context, e env, args []string) error {
	fs := flags("adjust")
	id := fs.Uint64("id", 0, "settlement id")
	fee := fs.String("fee", "", "platform fee percent, e.g. 12.5")
	final := fs.Int64("final", 0, "final payable amount")
	notes := fs.String("notes", "", "admin notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	var adj client.Adjustment
	if fs.Changed("fee") {
		pct, err := decimal.NewFromString(trimmed(*fee))
		if err != nil {
			return fmt.Errorf("--fee: %w", err)
		}
		adj.PlatformFeePercent = &pct
	}
	if fs.Changed("final") {
		adj.FinalPayableAmount = final
	}
	if fs.Changed("notes") {
		adj.AdminNotes = notes
	}
	st, err := e.api.AdjustSettlement(ctx, *id, adj)
	if err != nil {
		return err
	}
	return e.print(st)
}

func transition(action string) func(context.Context, env, []string) error {
	return func(ctx context.Context, e env, args []string) error {
		fs := flags(action)
		id := fs.Uint64("id", 0, "settlement id")
		notes := fs.String("notes", "", "admin notes (reject only)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID("id", *id); err != nil {
			return err
		}
		var (
			st  model.Settlement
			err error
		)
		switch action {
		case "review":
			st, err = e.api.ReviewSettlement(ctx, *id)
		case "approve":
			st, err = e.api.ApproveSettlement(ctx, *id)
		case "reject":
			st, err = e.api.RejectSettlement(ctx, *id, *notes)
		case "paid":
			st, err = e.api.MarkPaid(ctx, *id)
		}
		if err != nil {
			return err
		}
		return e.print(st)
	}
}

func cmdComments(ctx context.Context, e env, args []string) error {
	id, err := settlementFlag("comments", args)
	if err != nil {
		return err
	}
	list, err := e.api.Comments(ctx, id)
	if err != nil {
		return err
	}
	return e.print(list)
}

func cmdComment(ctx context.Context, e env, args []string) error {
	fs := flags("comment")
	id := fs.Uint64("id", 0, "settlement id")
	msg := fs.StringP("message", "m", "", "message text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	c, err := e.api.PostComment(ctx, *id, *msg)
	if err != nil {
		return err
	}
	return e.print(c)
}
