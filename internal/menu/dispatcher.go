package menu

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lojasmm/instantussd/internal/store"
	"github.com/lojasmm/instantussd/internal/ussd"
)

// maxChainDepth bounds how many handlers may pass control along via Next
// before a response has to be produced.
const maxChainDepth = 16

const (
	defaultErrorText = "Sorry, something went wrong. Please try again later."
	defaultExitText  = "Thank you for using our service. Goodbye."
)

// Dispatcher decides which menu answers a request, based only on the reduced
// history and the menus-served trail.
type Dispatcher struct {
	menus *Registry
	store store.Store
	home  string
}

func NewDispatcher(menus *Registry, s store.Store, home string) (*Dispatcher, error) {
	if _, ok := menus.Lookup(home); !ok {
		return nil, fmt.Errorf("%w: home menu %q", ErrUnknownMenu, home)
	}
	return &Dispatcher{menus: menus, store: s, home: home}, nil
}

// Dispatch always produces a response. Failures are logged and rendered
// through the error menu. A request whose text matches the last one answered
// for the session is a gateway retry and gets the remembered reply without
// moving the session again.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *ussd.Record, red *ussd.Reduction) *Response {
	ev := Event{Record: rec, Reduction: red}

	if !red.IsFirstRequest() {
		reply, err := d.store.Replay(rec.SessionID, rec.Text)
		if err != nil {
			log.Printf("dispatch: session %s: loading last reply: %v", rec.SessionID, err)
		} else if reply != nil {
			log.Printf("dispatch: session %s: replaying reply for retried request", rec.SessionID)
			return &Response{Text: reply.Text, End: reply.End}
		}
	}

	var (
		resp *Response
		err  error
	)
	switch {
	case red.IsFirstRequest(), red.IsExplicitHomepageRequest():
		resp, err = d.ShowHome(ctx, ev)
	case red.IsExitRequest():
		resp, err = d.Exit(ctx, ev)
	case red.IsGoBackRequest():
		resp, err = d.GoBack(ctx, ev)
	case red.IsLoadMoreRequest():
		resp, err = d.LoadMore(ctx, ev)
	default:
		resp, err = d.ProcessIncoming(ctx, ev)
	}
	if err != nil {
		log.Printf("dispatch: session %s (%s): %v", rec.SessionID, rec.PhoneNumber, err)
		return d.ShowError(ctx, ev, subscriberMessage(err))
	}

	if err := d.store.Remember(rec.SessionID, rec.PhoneNumber, rec.Text, store.Reply{Text: resp.Text, End: resp.End}); err != nil {
		log.Printf("dispatch: session %s: remembering reply: %v", rec.SessionID, err)
	}
	return resp
}

// ShowHome resets the session trail and renders the home menu.
func (d *Dispatcher) ShowHome(ctx context.Context, ev Event) (*Response, error) {
	if err := d.store.Clear(ev.Record.SessionID); err != nil {
		return nil, fmt.Errorf("clearing menus served: %w", err)
	}
	return d.ShowNext(ctx, ev, d.home)
}

// ShowNext renders menuID, following Next hand-offs until some handler responds.
func (d *Dispatcher) ShowNext(ctx context.Context, ev Event, menuID string) (*Response, error) {
	ev.IsIncomingData = false
	for depth := 0; ; depth++ {
		if depth >= maxChainDepth {
			return nil, fmt.Errorf("%w: stopped at %q", ErrChainTooDeep, menuID)
		}
		res, err := d.handle(ctx, ev, menuID)
		if err != nil {
			return nil, err
		}
		if res.Response != nil {
			if !ev.DisableTracking && !res.Response.End {
				if err := d.store.Track(ev.Record.SessionID, ev.Record.PhoneNumber, menuID); err != nil {
					return nil, fmt.Errorf("tracking menu %s: %w", menuID, err)
				}
			}
			return res.Response, nil
		}
		menuID = res.Next
		ev.Page = 0
	}
}

// ProcessIncoming lets the menu currently on screen interpret the latest value.
func (d *Dispatcher) ProcessIncoming(ctx context.Context, ev Event) (*Response, error) {
	current, err := d.store.Latest(ev.Record.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading current menu: %w", err)
	}
	if current == "" {
		// Trail expired or was never written; start over.
		return d.ShowHome(ctx, ev)
	}

	ev.IsIncomingData = true
	res, err := d.handle(ctx, ev, current)
	if err != nil {
		return nil, err
	}
	if res.Response != nil {
		return res.Response, nil
	}
	return d.ShowNext(ctx, ev, res.Next)
}

// GoBack re-renders the menu served before the current one. With nothing to
// go back to the subscriber lands on the home menu.
func (d *Dispatcher) GoBack(ctx context.Context, ev Event) (*Response, error) {
	prev, err := d.store.Previous(ev.Record.SessionID)
	if errors.Is(err, store.ErrNoPreviousMenu) {
		return d.ShowHome(ctx, ev)
	}
	if err != nil {
		return nil, fmt.Errorf("loading previous menu: %w", err)
	}
	ev.DisableTracking = true
	return d.ShowNext(ctx, ev, prev)
}

// LoadMore re-renders the current menu on the page the subscriber paged to.
func (d *Dispatcher) LoadMore(ctx context.Context, ev Event) (*Response, error) {
	current, err := d.store.Latest(ev.Record.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading current menu: %w", err)
	}
	if current == "" {
		return d.ShowHome(ctx, ev)
	}
	ev.DisableTracking = true
	ev.Page = ev.Reduction.Page()
	return d.ShowNext(ctx, ev, current)
}

// Exit ends the session through the exit menu, or a built-in goodbye when
// none is registered.
func (d *Dispatcher) Exit(ctx context.Context, ev Event) (*Response, error) {
	if err := d.store.Clear(ev.Record.SessionID); err != nil {
		log.Printf("dispatch: clearing menus served for %s: %v", ev.Record.SessionID, err)
	}
	res, err := d.handle(ctx, ev, ExitMenu)
	if err != nil {
		return nil, err
	}
	if res.Response == nil {
		return nil, ErrNoExitHandler
	}
	res.Response.End = true
	return res.Response, nil
}

// ShowError renders the error menu with msg. It never fails.
func (d *Dispatcher) ShowError(ctx context.Context, ev Event, msg string) *Response {
	ev.ErrorMessage = msg
	if h, ok := d.menus.Lookup(ErrorMenu); ok {
		ev.MenuID = ErrorMenu
		res, err := h.Handle(ctx, &ev)
		if err == nil && res.Response != nil && res.Response.Text != "" {
			return &Response{Text: res.Response.Text, End: true}
		}
		log.Printf("dispatch: error menu failed: %v", err)
	}
	if msg == "" {
		msg = defaultErrorText
	}
	return &Response{Text: msg, End: true}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event, menuID string) (Result, error) {
	h, ok := d.menus.Lookup(menuID)
	if !ok {
		if menuID == ExitMenu {
			return End(defaultExitText), nil
		}
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMenu, menuID)
	}
	ev.MenuID = menuID
	res, err := h.Handle(ctx, &ev)
	if err != nil {
		return Result{}, fmt.Errorf("menu %s: %w", menuID, err)
	}
	if res.Response == nil && res.Next == "" {
		return Result{}, fmt.Errorf("%w: %q", ErrEmptyResult, menuID)
	}
	return res, nil
}
