package session

import (
	"github.com/sandevgo/docqa/internal/core"
)

// HistoryOptions bound the conversation. Zero values disable a bound.
type HistoryOptions struct {
	// MaxExchanges caps the number of user/assistant pairs kept.
	MaxExchanges int
	// TokenBudget caps the tokens of all non-system turns.
	TokenBudget int
	// CountTokens measures a turn for TokenBudget.
	CountTokens func(string) int
}

// History is the ordered turn list replayed to the model. The system turn
// is always first and never evicted; other turns come in user/assistant
// pairs and the oldest pair goes first when a bound is exceeded.
type History struct {
	turns []core.Turn
	opts  HistoryOptions
}

func NewHistory(systemInstruction string, opts HistoryOptions) *History {
	return &History{
		turns: []core.Turn{{Role: core.RoleSystem, Content: systemInstruction}},
		opts:  opts,
	}
}

// Turns returns a copy of the history.
func (h *History) Turns() []core.Turn {
	out := make([]core.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) Exchanges() int {
	return (len(h.turns) - 1) / 2
}

// Append adds one exchange and returns how many older exchanges were evicted.
func (h *History) Append(user, assistant core.Turn) int {
	h.turns = append(h.turns, user, assistant)

	evicted := 0
	for h.overBound() {
		h.turns = append(h.turns[:1], h.turns[3:]...)
		evicted++
	}
	return evicted
}

func (h *History) overBound() bool {
	exchanges := h.Exchanges()
	if exchanges <= 1 {
		return false
	}
	if h.opts.MaxExchanges > 0 && exchanges > h.opts.MaxExchanges {
		return true
	}
	return h.opts.TokenBudget > 0 && h.opts.CountTokens != nil && h.tokens() > h.opts.TokenBudget
}

func (h *History) tokens() int {
	total := 0
	for _, t := range h.turns[1:] {
		total += h.opts.CountTokens(t.Content)
	}
	return total
}
