package memory

import (
	"context"
	"math"
	"testing"

	"github.com/sandevgo/docqa/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(source, text string, vec ...float32) core.IndexEntry {
	return core.IndexEntry{Text: text, Vector: vec, Metadata: map[string]string{"source": source}}
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	require.NoError(t, idx.Add(ctx, []core.IndexEntry{
		entry("remote.md", "remote", 1, 0),
		entry("leave.md", "leave", 0, 1),
		entry("travel.md", "travel", 1, 1),
	}))

	got, err := idx.Search(ctx, []float32{2, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "remote", got[0].Text)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, "travel", got[1].Text)
	assert.InDelta(t, 1/math.Sqrt2, got[1].Score, 1e-9)
	assert.Equal(t, core.HigherIsBetter, idx.ScoreDirection())
}

func TestIndex_ReplacesSource(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	require.NoError(t, idx.Add(ctx, []core.IndexEntry{entry("a.md", "old a", 1, 0), entry("b.md", "b", 0, 1)}))
	require.NoError(t, idx.Add(ctx, []core.IndexEntry{entry("a.md", "new a", 1, 0)}))

	assert.Equal(t, 2, idx.Len())
	got, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new a", got[0].Text)
}

func TestIndex_Errors(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()

	got, err := idx.Search(ctx, []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, idx.Add(ctx, []core.IndexEntry{entry("a.md", "a", 1, 0)}))
	assert.Error(t, idx.Add(ctx, []core.IndexEntry{entry("b.md", "b", 1, 0, 0)}))
	assert.Error(t, idx.Add(ctx, []core.IndexEntry{entry("c.md", "c")}))

	_, err = idx.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	require.NoError(t, idx.Add(ctx, []core.IndexEntry{
		entry("a.md", "a", 1, 0),
		entry("b.md", "b", 0, 1),
	}))

	require.NoError(t, idx.Delete(ctx, "a.md"))
	require.NoError(t, idx.Delete(ctx, "unknown.md"))

	got, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)
}

func TestIndex_ZeroVectorScoresNaN(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	require.NoError(t, idx.Add(ctx, []core.IndexEntry{entry("a.md", "a", 1, 0)}))

	got, err := idx.Search(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0].Score))
}
