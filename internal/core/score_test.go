package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection_Retains(t *testing.T) {
	tests := []struct {
		name      string
		dir       Direction
		score     float64
		threshold float64
		want      bool
	}{
		{"distance below", LowerIsBetter, 0.5, 0.75, true},
		{"distance at boundary", LowerIsBetter, 0.75, 0.75, true},
		{"distance above", LowerIsBetter, 0.9, 0.75, false},
		{"similarity above", HigherIsBetter, 0.9, 0.75, true},
		{"similarity at boundary", HigherIsBetter, 0.75, 0.75, true},
		{"similarity below", HigherIsBetter, 0.5, 0.75, false},
		{"nan distance", LowerIsBetter, math.NaN(), 0.75, false},
		{"nan similarity", HigherIsBetter, math.NaN(), 0.75, false},
		{"negative infinity distance", LowerIsBetter, math.Inf(-1), 0.75, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dir.Retains(tt.score, tt.threshold))
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("lower_is_better")
	require.NoError(t, err)
	assert.Equal(t, LowerIsBetter, d)

	d, err = ParseDirection(" Higher_Is_Better ")
	require.NoError(t, err)
	assert.Equal(t, HigherIsBetter, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestDirection_TextRoundTrip(t *testing.T) {
	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("higher_is_better")))
	assert.Equal(t, HigherIsBetter, d)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "higher_is_better", string(out))
}
