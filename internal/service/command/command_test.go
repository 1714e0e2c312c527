package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	stats   session.Stats
	sources []core.ScoredCandidate
}

func (f *fakeInspector) Stats() session.Stats                { return f.stats }
func (f *fakeInspector) LastSources() []core.ScoredCandidate { return f.sources }

type fakeLister struct {
	ModelsFunc func(ctx context.Context) ([]core.Model, error)
}

func (f *fakeLister) Models(ctx context.Context) ([]core.Model, error) {
	return f.ModelsFunc(ctx)
}

type providerCfg struct{}

func (providerCfg) GetProvider() string             { return "ollama" }
func (providerCfg) GetModel() string                { return "gemma3:1b" }
func (providerCfg) GetLLMTimeout() time.Duration    { return time.Minute }
func (providerCfg) GetAnthropicAPIKey() string      { return "" }
func (providerCfg) GetOpenAIAPIKey() string         { return "" }
func (providerCfg) GetOpenRouterAPIKey() string     { return "" }
func (providerCfg) GetOllamaAPIKey() string         { return "" }
func (providerCfg) GetOllamaBaseURL() string        { return "http://localhost:11434" }
func (providerCfg) GetCustomOpenAIBaseURL() string  { return "" }
func (providerCfg) GetCustomOpenAIAPIKey() string   { return "" }

type failingCommand struct{}

func (failingCommand) Name() string        { return "boom" }
func (failingCommand) Description() string { return "always fails" }
func (failingCommand) Execute(context.Context, string, []string) (string, error) {
	return "", errors.New("kaput")
}

func TestRouter_Execute(t *testing.T) {
	r := New([]core.Command{failingCommand{}})
	r.Register(NewHelpCommand(r))
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		handled bool
		want    string
	}{
		{"plain question", "what is the leave policy?", false, ""},
		{"unknown", "/nope", true, "Unknown command: /nope"},
		{"error", "/boom", true, "kaput"},
		{"bot suffix", "  /help@docqa_bot", true, "/boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, handled := r.Execute(ctx, "s1", tt.input)
			assert.Equal(t, tt.handled, handled)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestNewRouter_ListsCommandsSorted(t *testing.T) {
	r := NewRouter(&fakeInspector{}, providerCfg{}, nil)

	var names []string
	for _, c := range r.ListCommands() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"help", "history", "sources"}, names)

	r = NewRouter(&fakeInspector{}, providerCfg{}, &fakeLister{})
	assert.Len(t, r.ListCommands(), 4)
}

func TestHistoryCommand(t *testing.T) {
	sess := &fakeInspector{stats: session.Stats{Turns: 5, Exchanges: 2, MaxExchanges: 20, State: session.Idle}}

	out, err := NewHistoryCommand(sess).Execute(context.Background(), "abc", nil)
	require.NoError(t, err)

	assert.Contains(t, out, "`5`")
	assert.Contains(t, out, "`2`")
	assert.Contains(t, out, "20 exchanges")
	assert.Contains(t, out, "`off`")
	assert.Contains(t, out, "`abc`")
}

func TestSourcesCommand(t *testing.T) {
	sess := &fakeInspector{}
	cmd := NewSourcesCommand(sess)

	out, err := cmd.Execute(context.Background(), "s", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No passages")

	sess.sources = []core.ScoredCandidate{
		{Text: "a", Metadata: map[string]string{"source": "remote.md"}, Score: 0.5},
		{Text: "b", Metadata: map[string]string{"source": "leave.md"}, Score: 0.75},
	}
	out, err = cmd.Execute(context.Background(), "s", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "**remote.md** `0.5000`")
	assert.Contains(t, out, "**leave.md** `0.7500`")
}

func TestModelsCommand(t *testing.T) {
	lister := &fakeLister{ModelsFunc: func(context.Context) ([]core.Model, error) {
		return []core.Model{
			{ID: "gemma3:1b"},
			{ID: "llama3.1:8b", ContextLength: 131072},
		}, nil
	}}
	cmd := NewModelsCommand(providerCfg{}, lister)

	out, err := cmd.Execute(context.Background(), "s", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "`gemma3:1b`")
	assert.Contains(t, out, "`llama3.1:8b` (131072 ctx)")

	out, err = cmd.Execute(context.Background(), "s", []string{"LLAMA"})
	require.NoError(t, err)
	assert.NotContains(t, out, "› `gemma3:1b`\n")
	assert.Contains(t, out, "llama3.1:8b")

	lister.ModelsFunc = func(context.Context) ([]core.Model, error) { return nil, core.ErrModelUnavailable }
	_, err = cmd.Execute(context.Background(), "s", nil)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
}
