package session

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(i int) (core.Turn, core.Turn) {
	return core.Turn{Role: core.RoleUser, Content: fmt.Sprintf("u%d", i)},
		core.Turn{Role: core.RoleAssistant, Content: fmt.Sprintf("a%d", i)}
}

func contents(turns []core.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}

func TestHistory_Unbounded(t *testing.T) {
	h := NewHistory("sys", HistoryOptions{})
	for i := 0; i < 5; i++ {
		assert.Zero(t, h.Append(exchange(i)))
	}
	assert.Equal(t, 11, h.Len())
	assert.Equal(t, 5, h.Exchanges())
}

func TestHistory_MaxExchangesEvictsOldestPair(t *testing.T) {
	h := NewHistory("sys", HistoryOptions{MaxExchanges: 2})

	h.Append(exchange(1))
	h.Append(exchange(2))
	evicted := h.Append(exchange(3))

	assert.Equal(t, 1, evicted)
	assert.Equal(t, []string{"sys", "u2", "a2", "u3", "a3"}, contents(h.Turns()))
}

func TestHistory_TokenBudget(t *testing.T) {
	count := func(s string) int { return len(strings.Fields(s)) }
	h := NewHistory("a very long system instruction that is never counted", HistoryOptions{
		TokenBudget: 4,
		CountTokens: count,
	})

	h.Append(core.Turn{Role: core.RoleUser, Content: "one two"}, core.Turn{Role: core.RoleAssistant, Content: "three"})
	h.Append(core.Turn{Role: core.RoleUser, Content: "four"}, core.Turn{Role: core.RoleAssistant, Content: "five six"})

	turns := h.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, core.RoleSystem, turns[0].Role)
	assert.Equal(t, []string{"four", "five six"}, contents(turns[1:]))
}

func TestHistory_NewestPairSurvivesBudget(t *testing.T) {
	count := func(s string) int { return len(s) }
	h := NewHistory("sys", HistoryOptions{TokenBudget: 1, CountTokens: count})

	h.Append(exchange(1))
	h.Append(core.Turn{Role: core.RoleUser, Content: "much longer than budget"}, core.Turn{Role: core.RoleAssistant, Content: "also long"})

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, "much longer than budget", h.Turns()[1].Content)
}

func TestHistory_TurnsIsACopy(t *testing.T) {
	h := NewHistory("sys", HistoryOptions{})
	h.Append(exchange(1))

	turns := h.Turns()
	turns[0].Content = "tampered"
	assert.Equal(t, "sys", h.Turns()[0].Content)
}

func TestPromptTemplate(t *testing.T) {
	p, err := NewPromptTemplate(testTemplate)
	require.NoError(t, err)

	got := p.Compose("policy says {question}", "what about {context}?")
	assert.Equal(t, "context: policy says {question}\n\nUser's actual question: what about {context}?\n\n", got)

	_, err = NewPromptTemplate("no placeholders")
	assert.Error(t, err)
}
