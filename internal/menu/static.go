package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lojasmm/instantussd/internal/ussd"
)

const (
	invalidChoiceText = "Invalid choice."
	inputRequiredText = "A response is required."
)

// StaticMenu renders a menu declared in the menus file.
type StaticMenu struct {
	ID     string
	Def    Definition
	IsHome bool
}

func (m *StaticMenu) Handle(_ context.Context, ev *Event) (Result, error) {
	switch m.Def.Kind {
	case KindOptions:
		if ev.IsIncomingData {
			return m.selectOption(ev), nil
		}
		return Reply(m.renderOptions(ev, "")), nil
	case KindInput:
		if ev.IsIncomingData {
			if ev.Record.Latest() == "" {
				return Reply(m.renderInput(inputRequiredText)), nil
			}
			return Continue(m.Def.Next), nil
		}
		return Reply(m.renderInput("")), nil
	case KindEnd:
		text := m.Def.Text
		if ev.ErrorMessage != "" {
			text = strings.TrimSpace(ev.ErrorMessage + "\n" + text)
		}
		return End(text), nil
	default:
		return Result{}, &HandlerError{MenuID: m.ID, Message: "This menu is unavailable.", Err: fmt.Errorf("unknown kind %q", m.Def.Kind)}
	}
}

func (m *StaticMenu) selectOption(ev *Event) Result {
	n, err := strconv.Atoi(ev.Record.Latest())
	if err != nil || n < 1 || n > len(m.Def.Options) {
		return Reply(m.renderOptions(ev, invalidChoiceText))
	}
	return Continue(m.Def.Options[n-1].Next)
}

// renderOptions lists the options on the page the subscriber paged to. Option
// numbers are global so a selection means the same thing on every page.
func (m *StaticMenu) renderOptions(ev *Event, notice string) string {
	size := m.Def.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	pages := (len(m.Def.Options) + size - 1) / size
	page := ev.Page
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}

	var b strings.Builder
	if notice != "" {
		b.WriteString(notice + "\n")
	}
	if m.Def.Title != "" {
		b.WriteString(m.Def.Title + "\n")
	}
	start := page * size
	end := min(start+size, len(m.Def.Options))
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Def.Options[i].Label)
	}
	if end < len(m.Def.Options) {
		fmt.Fprintf(&b, "%s. More\n", ussd.LoadMoreKey)
	}
	m.writeNav(&b)
	return strings.TrimRight(b.String(), "\n")
}

func (m *StaticMenu) renderInput(notice string) string {
	var b strings.Builder
	if notice != "" {
		b.WriteString(notice + "\n")
	}
	b.WriteString(m.Def.Prompt + "\n")
	m.writeNav(&b)
	return strings.TrimRight(b.String(), "\n")
}

func (m *StaticMenu) writeNav(b *strings.Builder) {
	if m.IsHome {
		return
	}
	fmt.Fprintf(b, "%s. Back\n%s. Home\n", ussd.GoBackKey, ussd.HomeKey)
}
