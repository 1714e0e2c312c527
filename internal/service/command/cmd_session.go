package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/session"
)

// Inspector is the read-only view of a session the commands need.
type Inspector interface {
	Stats() session.Stats
	LastSources() []core.ScoredCandidate
}

type HistoryCommand struct {
	sess      Inspector
	formatter *ResponseFormatter
}

func NewHistoryCommand(sess Inspector) *HistoryCommand {
	return &HistoryCommand{
		sess:      sess,
		formatter: NewResponseFormatter(),
	}
}

func (c *HistoryCommand) Name() string {
	return "history"
}

func (c *HistoryCommand) Description() string {
	return "Show conversation size and bound"
}

func (c *HistoryCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	st := c.sess.Stats()

	bound := "unbounded"
	if st.MaxExchanges > 0 {
		bound = fmt.Sprintf("%d exchanges", st.MaxExchanges)
	}
	budget := "off"
	if st.TokenBudget > 0 {
		budget = fmt.Sprintf("%d tokens", st.TokenBudget)
	}

	return c.formatter.Combine(
		c.formatter.Info("Conversation"),
		c.formatter.Label("Session", sessionID),
		c.formatter.Label("Turns", strconv.Itoa(st.Turns)),
		c.formatter.Label("Exchanges", strconv.Itoa(st.Exchanges)),
		c.formatter.Label("Bound", bound),
		c.formatter.Label("Token budget", budget),
		c.formatter.Label("State", st.State.String()),
	), nil
}

type SourcesCommand struct {
	sess      Inspector
	formatter *ResponseFormatter
}

func NewSourcesCommand(sess Inspector) *SourcesCommand {
	return &SourcesCommand{
		sess:      sess,
		formatter: NewResponseFormatter(),
	}
}

func (c *SourcesCommand) Name() string {
	return "sources"
}

func (c *SourcesCommand) Description() string {
	return "Show the passages used for the last answer"
}

func (c *SourcesCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	sources := c.sess.LastSources()
	if len(sources) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Sources"),
			c.formatter.Label("Status", "No passages were used for the last answer."),
		), nil
	}

	items := make([]string, len(sources))
	for i, s := range sources {
		items[i] = fmt.Sprintf("**%s** `%.4f`", s.Source(), s.Score)
	}

	return c.formatter.Combine(
		c.formatter.Info("Sources"),
		c.formatter.List(items),
	), nil
}
