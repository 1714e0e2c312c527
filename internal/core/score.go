package core

import (
	"fmt"
	"math"
	"strings"
)

// Direction is the polarity of similarity scores.
type Direction int

const (
	// LowerIsBetter is used by distance metrics such as L2.
	LowerIsBetter Direction = iota
	// HigherIsBetter is used by similarity metrics such as cosine.
	HigherIsBetter
)

const (
	lowerIsBetterName  = "lower_is_better"
	higherIsBetterName = "higher_is_better"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case lowerIsBetterName, "lower", "distance":
		return LowerIsBetter, nil
	case higherIsBetterName, "higher", "similarity":
		return HigherIsBetter, nil
	default:
		return 0, fmt.Errorf("unknown comparison direction %q", s)
	}
}

func (d Direction) String() string {
	switch d {
	case LowerIsBetter:
		return lowerIsBetterName
	case HigherIsBetter:
		return higherIsBetterName
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Retains reports whether score passes threshold. The boundary is inclusive
// and NaN never passes.
func (d Direction) Retains(score, threshold float64) bool {
	if math.IsNaN(score) || math.IsNaN(threshold) {
		return false
	}
	if d == HigherIsBetter {
		return score >= threshold
	}
	return score <= threshold
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
