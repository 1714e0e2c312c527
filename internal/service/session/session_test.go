package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTemplate = "context: {context}\n\nUser's actual question: {question}\n\n"

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fakeIndex struct {
	searchFunc func(ctx context.Context, vector []float32, k int) ([]core.ScoredCandidate, error)
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, k int) ([]core.ScoredCandidate, error) {
	if f.searchFunc == nil {
		return nil, nil
	}
	return f.searchFunc(ctx, vector, k)
}

type fakeModel struct {
	mu         sync.Mutex
	invokeFunc func(ctx context.Context, turns []core.Turn) (string, error)
	calls      [][]core.Turn
}

func (f *fakeModel) Invoke(ctx context.Context, turns []core.Turn) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, turns)
	f.mu.Unlock()
	if f.invokeFunc != nil {
		return f.invokeFunc(ctx, turns)
	}
	return fmt.Sprintf("reply %d", len(turns)), nil
}

func (f *fakeModel) lastUserTurn() core.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.calls[len(f.calls)-1]
	return last[len(last)-1]
}

type fakeRecorder struct {
	err       error
	exchanges []string
}

func (f *fakeRecorder) RecordExchange(_ context.Context, _ string, user, assistant core.Turn) error {
	f.exchanges = append(f.exchanges, assistant.Content)
	return f.err
}

func newSession(t *testing.T, index core.Index, model core.LanguageModel, direction core.Direction, threshold float64, sink retrieval.Sink, opts ...Option) *Session {
	t.Helper()
	s, err := New(
		Config{
			K:                 3,
			ScoreThreshold:    threshold,
			SystemInstruction: "You work in HR.",
			PromptTemplate:    testTemplate,
		},
		retrieval.NewRetriever(fakeEmbedder{}, index),
		retrieval.NewFilter(direction, sink),
		retrieval.NewAssembler(retrieval.DefaultSeparator, 0),
		model,
		opts...,
	)
	require.NoError(t, err)
	return s
}

func TestSession_ScenarioA_SingleRelevantDocument(t *testing.T) {
	doc := core.ScoredCandidate{
		Text:     "Remote work requires 3 days onsite.",
		Metadata: map[string]string{"source": "remote.md"},
		Score:    0,
	}
	index := &fakeIndex{searchFunc: func(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
		return []core.ScoredCandidate{doc}, nil
	}}
	model := &fakeModel{}
	s := newSession(t, index, model, core.LowerIsBetter, 0, nil)

	_, err := s.Ask(context.Background(), "What is the remote work policy?")
	require.NoError(t, err)

	user := model.lastUserTurn()
	assert.Equal(t, core.RoleUser, user.Role)
	assert.Equal(t,
		"context: Remote work requires 3 days onsite.\n\nUser's actual question: What is the remote work policy?\n\n",
		user.Content)
	assert.Equal(t, []core.ScoredCandidate{doc}, s.LastSources())
}

func TestSession_ScenarioB_EmptyIndex(t *testing.T) {
	model := &fakeModel{}
	s := newSession(t, &fakeIndex{}, model, core.LowerIsBetter, 0.75, nil)

	_, err := s.Ask(context.Background(), "Is there a dress code?")
	require.NoError(t, err)

	user := model.lastUserTurn()
	assert.Contains(t, user.Content, retrieval.NoContextSentinel)
	assert.True(t, strings.HasPrefix(user.Content, "context: "+retrieval.NoContextSentinel))
	assert.Empty(t, s.LastSources())
}

func TestSession_ScenarioC_ThresholdDiscards(t *testing.T) {
	index := &fakeIndex{searchFunc: func(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
		return []core.ScoredCandidate{
			{Text: "close", Score: 0.1},
			{Text: "middling", Score: 0.5},
			{Text: "far", Score: 0.9},
		}, nil
	}}

	var discarded []string
	sink := retrieval.SinkFunc(func(_ context.Context, d retrieval.RetentionDecision) {
		if !d.Kept {
			discarded = append(discarded, d.Candidate.Text)
		}
	})
	model := &fakeModel{}
	s := newSession(t, index, model, core.LowerIsBetter, 0.3, sink)

	_, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)

	sources := s.LastSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "close", sources[0].Text)
	assert.Equal(t, []string{"middling", "far"}, discarded)
	assert.Contains(t, model.lastUserTurn().Content, "context: close\n\n")
}

func TestSession_ScenarioD_ModelFailureLeavesHistory(t *testing.T) {
	turn := 0
	model := &fakeModel{invokeFunc: func(context.Context, []core.Turn) (string, error) {
		turn++
		if turn == 2 {
			return "", errors.New("connection reset")
		}
		return fmt.Sprintf("answer %d", turn), nil
	}}
	s := newSession(t, &fakeIndex{}, model, core.LowerIsBetter, 0.75, nil)

	reply, err := s.Ask(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "answer 1", reply)
	assert.Len(t, s.Turns(), 3)

	_, err = s.Ask(context.Background(), "second")
	require.Error(t, err)

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, Invoking, turnErr.Stage)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.Len(t, s.Turns(), 3)
	assert.Equal(t, Idle, s.State())

	reply, err = s.Ask(context.Background(), "third")
	require.NoError(t, err)
	assert.Equal(t, "answer 3", reply)

	turns := s.Turns()
	require.Len(t, turns, 5)
	assert.Contains(t, turns[3].Content, "third")
	assert.Equal(t, "answer 3", turns[4].Content)
}

func TestSession_RetrievalFailure(t *testing.T) {
	index := &fakeIndex{searchFunc: func(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
		return nil, errors.New("database is locked")
	}}
	model := &fakeModel{}
	s := newSession(t, index, model, core.LowerIsBetter, 0.75, nil)

	_, err := s.Ask(context.Background(), "q")

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, Retrieving, turnErr.Stage)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
	assert.Len(t, s.Turns(), 1)
	assert.Empty(t, model.calls, "model must not be invoked when retrieval fails")
}

func TestSession_ModelTimeoutKeepsSentinel(t *testing.T) {
	model := &fakeModel{invokeFunc: func(context.Context, []core.Turn) (string, error) {
		return "", fmt.Errorf("%w: deadline", core.ErrModelTimeout)
	}}
	s := newSession(t, &fakeIndex{}, model, core.LowerIsBetter, 0.75, nil)

	_, err := s.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, core.ErrModelTimeout)
	assert.NotErrorIs(t, err, core.ErrModelUnavailable)
}

func TestSession_EmptyQuery(t *testing.T) {
	model := &fakeModel{}
	s := newSession(t, &fakeIndex{}, model, core.LowerIsBetter, 0.75, nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := s.Ask(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Len(t, s.Turns(), 1)
	assert.Empty(t, model.calls)
}

func TestSession_AlternationAfterNTurns(t *testing.T) {
	model := &fakeModel{}
	s := newSession(t, &fakeIndex{}, model, core.LowerIsBetter, 0.75, nil)

	const n = 4
	for i := 0; i < n; i++ {
		_, err := s.Ask(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	turns := s.Turns()
	require.Len(t, turns, 1+2*n)
	assert.Equal(t, core.RoleSystem, turns[0].Role)
	assert.Equal(t, "You work in HR.", turns[0].Content)
	for i := 1; i < len(turns); i += 2 {
		assert.Equal(t, core.RoleUser, turns[i].Role)
		assert.Equal(t, core.RoleAssistant, turns[i+1].Role)
	}

	// Each invocation replays the full history plus the new user turn.
	for i, call := range model.calls {
		assert.Len(t, call, 2+2*i)
	}
}

func TestSession_StoresAugmentedText(t *testing.T) {
	s := newSession(t, &fakeIndex{}, &fakeModel{}, core.LowerIsBetter, 0.75, nil)

	_, err := s.Ask(context.Background(), "raw question")
	require.NoError(t, err)

	user := s.Turns()[1]
	assert.Equal(t, "context: "+retrieval.NoContextSentinel+"\n\nUser's actual question: raw question\n\n", user.Content)
}

func TestSession_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	s := newSession(t, &fakeIndex{}, &fakeModel{}, core.LowerIsBetter, 0.75, nil, WithRecorder(rec), WithID("fixed"))

	reply, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{reply}, rec.exchanges)
	assert.Equal(t, "fixed", s.ID())
}

func TestSession_ConcurrentAsksAreSerialized(t *testing.T) {
	s := newSession(t, &fakeIndex{}, &fakeModel{}, core.LowerIsBetter, 0.75, nil)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Ask(context.Background(), fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns := s.Turns()
	require.Len(t, turns, 1+2*n)
	for i := 1; i < len(turns); i += 2 {
		assert.Equal(t, core.RoleUser, turns[i].Role)
		assert.Equal(t, core.RoleAssistant, turns[i+1].Role)
	}
}

func TestSession_Stats(t *testing.T) {
	s, err := New(
		Config{K: 1, PromptTemplate: testTemplate, History: HistoryOptions{MaxExchanges: 2}},
		retrieval.NewRetriever(fakeEmbedder{}, &fakeIndex{}),
		retrieval.NewFilter(core.LowerIsBetter, nil),
		retrieval.NewAssembler("", 0),
		&fakeModel{},
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Ask(context.Background(), "q")
		require.NoError(t, err)
	}

	st := s.Stats()
	assert.Equal(t, 5, st.Turns)
	assert.Equal(t, 2, st.Exchanges)
	assert.Equal(t, 2, st.MaxExchanges)
	assert.Equal(t, Idle, st.State)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	r := retrieval.NewRetriever(fakeEmbedder{}, &fakeIndex{})
	f := retrieval.NewFilter(core.LowerIsBetter, nil)
	a := retrieval.NewAssembler("", 0)

	_, err := New(Config{K: 0, PromptTemplate: testTemplate}, r, f, a, &fakeModel{})
	assert.Error(t, err)

	_, err = New(Config{K: 3, PromptTemplate: "{question} only"}, r, f, a, &fakeModel{})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrEmptyQuery, "please type a question"},
		{&TurnError{Stage: Invoking, Err: core.ErrModelTimeout}, "did not answer in time"},
		{&TurnError{Stage: Invoking, Err: core.ErrModelUnavailable}, "language model is unavailable"},
		{&TurnError{Stage: Retrieving, Err: core.ErrIndexUnavailable}, "document index is unavailable"},
		{&TurnError{Stage: Retrieving, Err: fmt.Errorf("%w: %w", core.ErrIndexUnavailable, core.ErrDimensionMismatch)}, "index --rebuild"},
		{errors.New("other"), "other"},
	}

	for _, tt := range tests {
		assert.Contains(t, Describe(tt.err), tt.want)
	}
}
