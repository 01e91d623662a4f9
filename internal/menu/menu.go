package menu

import (
	"context"
	"fmt"

	"github.com/lojasmm/instantussd/internal/ussd"
)

// Reserved menu ids rendered by the dispatcher itself.
const (
	ExitMenu  = "_exit_"
	ErrorMenu = "_error_"
)

// Response is what the subscriber sees. End closes the USSD session.
type Response struct {
	Text string
	End  bool
}

// Result is returned by a Handler: either a Response to send, or the id of the
// next menu to hand control to.
type Result struct {
	Response *Response
	Next     string
}

func Reply(text string) Result    { return Result{Response: &Response{Text: text}} }
func End(text string) Result      { return Result{Response: &Response{Text: text, End: true}} }
func Continue(next string) Result { return Result{Next: next} }

// Event is passed to a menu handler.
type Event struct {
	Record    *ussd.Record
	Reduction *ussd.Reduction
	MenuID    string

	// IsIncomingData is set when the handler should interpret the subscriber's
	// latest value rather than render itself.
	IsIncomingData bool

	// DisableTracking keeps the rendered menu out of the menus-served trail.
	DisableTracking bool

	// Page is the zero-based page of a paginated menu to render. Only a
	// load-more request moves past the first page.
	Page int

	ErrorMessage string
}

type Handler interface {
	Handle(ctx context.Context, ev *Event) (Result, error)
}

type HandlerFunc func(ctx context.Context, ev *Event) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, ev *Event) (Result, error) { return f(ctx, ev) }

// Registry maps menu ids to handlers.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(id string, h Handler) error {
	if id == "" {
		return fmt.Errorf("menu: empty menu id")
	}
	if _, ok := r.handlers[id]; ok {
		return fmt.Errorf("menu: %q already registered", id)
	}
	r.handlers[id] = h
	return nil
}

func (r *Registry) Lookup(id string) (Handler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}
