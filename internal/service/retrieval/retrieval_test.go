package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.embedFunc != nil {
		return f.embedFunc(ctx, text)
	}
	return []float32{1, 0}, nil
}

type fakeIndex struct {
	searchFunc func(ctx context.Context, vector []float32, k int) ([]core.ScoredCandidate, error)
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, k int) ([]core.ScoredCandidate, error) {
	return f.searchFunc(ctx, vector, k)
}

func candidate(text string, score float64) core.ScoredCandidate {
	return core.ScoredCandidate{
		Text:     text,
		Score:    score,
		Metadata: map[string]string{"source": text + ".md"},
	}
}

func texts(cands []core.ScoredCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Text)
	}
	return out
}

func TestRetriever_Retrieve(t *testing.T) {
	index := &fakeIndex{searchFunc: func(_ context.Context, _ []float32, k int) ([]core.ScoredCandidate, error) {
		assert.Equal(t, 2, k)
		return []core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.2), candidate("c", 0.3)}, nil
	}}
	emb := &fakeEmbedder{}

	got, err := NewRetriever(emb, index).Retrieve(context.Background(), "remote work", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, texts(got))
	assert.Equal(t, []string{"remote work"}, emb.calls)
}

func TestRetriever_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		emb     *fakeEmbedder
		index   *fakeIndex
		k       int
		wantErr error
	}{
		{
			name:    "embedder failure",
			emb:     &fakeEmbedder{embedFunc: func(context.Context, string) ([]float32, error) { return nil, boom }},
			index:   &fakeIndex{},
			k:       3,
			wantErr: core.ErrIndexUnavailable,
		},
		{
			name: "index failure",
			emb:  &fakeEmbedder{},
			index: &fakeIndex{searchFunc: func(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
				return nil, boom
			}},
			k:       3,
			wantErr: core.ErrIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRetriever(tt.emb, tt.index).Retrieve(context.Background(), "q", tt.k)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, boom)
		})
	}

	_, err := NewRetriever(&fakeEmbedder{}, &fakeIndex{}).Retrieve(context.Background(), "q", 0)
	assert.Error(t, err)
}

func TestRetriever_DimensionMismatchIsUnavailable(t *testing.T) {
	index := &fakeIndex{searchFunc: func(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
		return nil, fmt.Errorf("query %w: got 2, want 3", core.ErrDimensionMismatch)
	}}

	got, err := NewRetriever(&fakeEmbedder{}, index).Retrieve(context.Background(), "q", 3)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestRetriever_EmptyIndex(t *testing.T) {
	index := &fakeIndex{searchFunc: func(context.Context, []float32, int) ([]core.ScoredCandidate, error) {
		return nil, nil
	}}

	got, err := NewRetriever(&fakeEmbedder{}, index).Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilter_Filter(t *testing.T) {
	tests := []struct {
		name      string
		direction core.Direction
		threshold float64
		input     []core.ScoredCandidate
		want      []string
	}{
		{
			name:      "distance keeps low scores",
			direction: core.LowerIsBetter,
			threshold: 0.3,
			input:     []core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.5), candidate("c", 0.9)},
			want:      []string{"a"},
		},
		{
			name:      "similarity keeps high scores",
			direction: core.HigherIsBetter,
			threshold: 0.5,
			input:     []core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.5), candidate("c", 0.9)},
			want:      []string{"b", "c"},
		},
		{
			name:      "order preserved",
			direction: core.LowerIsBetter,
			threshold: 0.5,
			input:     []core.ScoredCandidate{candidate("c", 0.4), candidate("a", 0.9), candidate("b", 0.1)},
			want:      []string{"c", "b"},
		},
		{
			name:      "nan discarded",
			direction: core.LowerIsBetter,
			threshold: 0.5,
			input:     []core.ScoredCandidate{candidate("a", math.NaN()), candidate("b", 0.2)},
			want:      []string{"b"},
		},
		{
			name:      "nothing retained",
			direction: core.LowerIsBetter,
			threshold: 0.05,
			input:     []core.ScoredCandidate{candidate("a", 0.1)},
			want:      []string{},
		},
		{
			name:      "empty input",
			direction: core.HigherIsBetter,
			threshold: 0.5,
			input:     nil,
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.direction, nil)
			got := f.Filter(context.Background(), tt.input, tt.threshold)
			assert.Equal(t, tt.want, texts(got))

			again := f.Filter(context.Background(), got, tt.threshold)
			assert.Equal(t, got, again, "filtering must be idempotent")
		})
	}
}

func TestFilter_ReportsDiscarded(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	var decisions []RetentionDecision
	collect := SinkFunc(func(_ context.Context, d RetentionDecision) {
		decisions = append(decisions, d)
	})

	input := []core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.5), candidate("c", 0.9)}
	kept := NewFilter(core.LowerIsBetter, MultiSink{LogSink{}, collect}).Filter(ctx, input, 0.3)

	assert.Equal(t, []string{"a"}, texts(kept))
	require.Len(t, decisions, 3)

	var discarded []string
	for _, d := range decisions {
		assert.Equal(t, 0.3, d.Threshold)
		if !d.Kept {
			discarded = append(discarded, d.Candidate.Text)
		}
	}
	assert.Equal(t, []string{"b", "c"}, discarded)

	logs := buf.String()
	assert.Equal(t, 2, strings.Count(logs, "skipping candidate"))
	assert.Contains(t, logs, `"source":"b.md"`)
	assert.Contains(t, logs, `"direction":"lower_is_better"`)
}

func TestFilter_SinkPanicIsContained(t *testing.T) {
	panicky := SinkFunc(func(context.Context, RetentionDecision) {
		panic("sink exploded")
	})

	var kept []core.ScoredCandidate
	assert.NotPanics(t, func() {
		kept = NewFilter(core.LowerIsBetter, panicky).Filter(
			context.Background(),
			[]core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.9)},
			0.3,
		)
	})
	assert.Equal(t, []string{"a"}, texts(kept))
}

func TestFilter_DoesNotShareMetadata(t *testing.T) {
	in := []core.ScoredCandidate{candidate("a", 0.1)}
	out := NewFilter(core.LowerIsBetter, nil).Filter(context.Background(), in, 0.3)

	out[0].Metadata["source"] = "changed"
	assert.Equal(t, "a.md", in[0].Metadata["source"])
}

func TestMetricsSink(t *testing.T) {
	m := metrics.NewManager(metrics.DefaultConfig())
	f := NewFilter(core.LowerIsBetter, MetricsSink{Metrics: m})

	assert.NotPanics(t, func() {
		f.Filter(context.Background(), []core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.9)}, 0.3)
	})

	var nilSink MetricsSink
	assert.NotPanics(t, func() {
		nilSink.Report(context.Background(), RetentionDecision{Kept: true})
	})
}

func TestAssembler_Assemble(t *testing.T) {
	tests := []struct {
		name     string
		sep      string
		maxChars int
		input    []core.ScoredCandidate
		want     string
	}{
		{
			name:  "empty input gives sentinel",
			sep:   DefaultSeparator,
			input: nil,
			want:  NoContextSentinel,
		},
		{
			name:  "single passage verbatim",
			sep:   DefaultSeparator,
			input: []core.ScoredCandidate{candidate("Remote work requires 3 days onsite.", 0.1)},
			want:  "Remote work requires 3 days onsite.",
		},
		{
			name:  "order preserved with separator",
			sep:   DefaultSeparator,
			input: []core.ScoredCandidate{candidate("second", 0.2), candidate("first", 0.1)},
			want:  "second\n\nfirst",
		},
		{
			name:     "bound truncates crossing passage and drops the rest",
			sep:      "|",
			maxChars: 8,
			input:    []core.ScoredCandidate{candidate("abcd", 0), candidate("efgh", 0), candidate("ijkl", 0)},
			want:     "abcd|efg",
		},
		{
			name:     "truncation respects runes",
			sep:      "",
			maxChars: 3,
			input:    []core.ScoredCandidate{candidate("héllo", 0)},
			want:     "hél",
		},
		{
			name:  "blank passages give sentinel",
			sep:   "",
			input: []core.ScoredCandidate{candidate("  ", 0)},
			want:  NoContextSentinel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAssembler(tt.sep, tt.maxChars).Assemble(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbe_Search(t *testing.T) {
	index := &fakeIndex{searchFunc: func(_ context.Context, _ []float32, k int) ([]core.ScoredCandidate, error) {
		all := []core.ScoredCandidate{candidate("a", 0.1), candidate("b", 0.5), candidate("c", 0.9)}
		return all[:min(k, len(all))], nil
	}}
	r := NewRetriever(&fakeEmbedder{}, index)
	p := NewProbe(r, NewFilter(core.LowerIsBetter, nil), 3, 0.3)

	decisions, err := p.Search(context.Background(), "leave", 0)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.True(t, decisions[0].Kept)
	assert.False(t, decisions[1].Kept)
	assert.False(t, decisions[2].Kept)
	assert.Equal(t, core.LowerIsBetter, decisions[2].Direction)

	decisions, err = p.Search(context.Background(), "leave", 1)
	require.NoError(t, err)
	assert.Len(t, decisions, 1)

	failing := NewProbe(NewRetriever(&fakeEmbedder{embedFunc: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("down")
	}}, index), NewFilter(core.LowerIsBetter, nil), 3, 0.3)
	_, err = failing.Search(context.Background(), "leave", 0)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
}
