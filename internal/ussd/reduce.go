package ussd

import (
	"errors"
	"strings"
)

// Reserved navigation keys. These are protocol constants, not configuration.
const (
	LoadMoreKey = "98"
	GoBackKey   = "0"
	HomeKey     = "00"
	ExitKey     = "000"
)

var ErrEmptySeparator = errors.New("ussd: separator must not be empty")

// Tokenize splits the raw history on sep and trims each value.
// A blank history yields an empty sequence, not a single empty token.
func Tokenize(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// StripLoadMore returns a copy of tokens without any LoadMoreKey entries.
func StripLoadMore(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != LoadMoreKey {
			out = append(out, t)
		}
	}
	return out
}

// ReduceTokens replays tokens left to right against a stack of live entries:
// HomeKey clears the stack, GoBackKey pops the most recent live entry (or does
// nothing when the stack is empty) and ExitKey is dropped. Anything else,
// LoadMoreKey included, is pushed. The surviving stack is returned oldest first.
func ReduceTokens(tokens []string) []string {
	live := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch t {
		case HomeKey:
			live = live[:0]
		case GoBackKey:
			if len(live) > 0 {
				live = live[:len(live)-1]
			}
		case ExitKey:
			// terminal, never part of the navigation path
		default:
			live = append(live, t)
		}
	}
	return live
}

// Parser reduces raw histories joined with a fixed separator.
type Parser struct {
	sep string
}

func NewParser(sep string) (*Parser, error) {
	if sep == "" {
		return nil, ErrEmptySeparator
	}
	return &Parser{sep: sep}, nil
}

func (p *Parser) Separator() string { return p.sep }

// Reduce derives every view of the history the dispatcher needs.
func (p *Parser) Reduce(raw string) *Reduction {
	trimmed := Tokenize(raw, p.sep)
	return &Reduction{
		Text:                      raw,
		Trimmed:                   trimmed,
		NonExtraneous:             ReduceTokens(StripLoadMore(trimmed)),
		NonExtraneousWithLoadMore: ReduceTokens(trimmed),
	}
}

// Reduce is a one-shot helper for callers without a long-lived Parser.
func Reduce(raw, sep string) (*Reduction, error) {
	p, err := NewParser(sep)
	if err != nil {
		return nil, err
	}
	return p.Reduce(raw), nil
}

// Reduction holds the raw history and its reduced forms for a single request.
type Reduction struct {
	Text string

	// Trimmed is every value the subscriber entered, markers included.
	Trimmed []string

	// NonExtraneous has navigation and load-more values removed.
	NonExtraneous []string

	// NonExtraneousWithLoadMore keeps LoadMoreKey entries so pagination can be tracked.
	NonExtraneousWithLoadMore []string
}

func (r *Reduction) IsFirstRequest() bool {
	return strings.TrimSpace(r.Text) == ""
}

func (r *Reduction) IsExitRequest() bool     { return r.latestIs(ExitKey) }
func (r *Reduction) IsGoBackRequest() bool   { return r.latestIs(GoBackKey) }
func (r *Reduction) IsLoadMoreRequest() bool { return r.latestIs(LoadMoreKey) }

// IsExplicitHomepageRequest reports whether the subscriber just keyed HomeKey.
func (r *Reduction) IsExplicitHomepageRequest() bool {
	return len(r.Trimmed) > 0 && r.latestIs(HomeKey)
}

func (r *Reduction) latestIs(key string) bool {
	v, ok := r.LatestResponse()
	return ok && v == key
}

// LatestResponse returns the most recent raw value. ok is false for an empty history.
func (r *Reduction) LatestResponse() (string, bool) {
	if len(r.Trimmed) == 0 {
		return "", false
	}
	return r.Trimmed[len(r.Trimmed)-1], true
}

// FirstResponse returns the first meaningful value the subscriber sent.
func (r *Reduction) FirstResponse() (string, bool) {
	if len(r.NonExtraneous) == 0 {
		return "", false
	}
	return r.NonExtraneous[0], true
}

// Page is the zero-based page the subscriber is viewing on the current menu,
// i.e. the number of trailing LoadMoreKey entries that survived reduction.
func (r *Reduction) Page() int {
	n := 0
	for i := len(r.NonExtraneousWithLoadMore) - 1; i >= 0; i-- {
		if r.NonExtraneousWithLoadMore[i] != LoadMoreKey {
			break
		}
		n++
	}
	return n
}
