package menu

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMenu   = errors.New("menu: unknown menu")
	ErrChainTooDeep  = errors.New("menu: next-menu chain too deep")
	ErrEmptyResult   = errors.New("menu: handler returned neither response nor next menu")
	ErrNoExitHandler = errors.New("menu: exit handler did not respond")
)

// HandlerError is returned by handlers that want a specific message shown on
// the error screen.
type HandlerError struct {
	MenuID  string
	Message string // shown to the subscriber
	Err     error
}

func (e *HandlerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("menu %s: %s", e.MenuID, e.Message)
	}
	return fmt.Sprintf("menu %s: %s: %v", e.MenuID, e.Message, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// subscriberMessage extracts the text to put on the error screen, if any.
func subscriberMessage(err error) string {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.Message
	}
	return ""
}
