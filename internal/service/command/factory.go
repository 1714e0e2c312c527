package command

import (
	"github.com/sandevgo/docqa/internal/core"
)

// NewRouter wires the chat commands for one session. models may be nil when
// the provider has no catalogue.
func NewRouter(
	sess Inspector,
	cfg core.ProviderConfig,
	models core.ModelLister,
) *Router {
	r := New([]core.Command{
		NewHistoryCommand(sess),
		NewSourcesCommand(sess),
	})
	if models != nil {
		r.Register(NewModelsCommand(cfg, models))
	}
	r.Register(NewHelpCommand(r))
	return r
}
