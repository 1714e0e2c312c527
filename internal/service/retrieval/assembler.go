package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/docqa/internal/core"
)

// NoContextSentinel stands in for the context when nothing relevant was retained.
const NoContextSentinel = "No relevant documents found for your query."

const DefaultSeparator = "\n\n"

// Assembler joins retained passages into one bounded context string.
type Assembler struct {
	separator string
	maxChars  int
}

// NewAssembler builds an assembler. maxChars counts runes; zero disables the bound.
func NewAssembler(separator string, maxChars int) *Assembler {
	return &Assembler{
		separator: separator,
		maxChars:  maxChars,
	}
}

// Assemble concatenates candidate texts in order. The passage crossing the
// bound is cut at a rune boundary and the rest are dropped. The sentinel is
// returned when there is nothing to say.
func (a *Assembler) Assemble(candidates []core.ScoredCandidate) string {
	var (
		b    strings.Builder
		used int
	)

	for i, c := range candidates {
		piece := c.Text
		if i > 0 {
			piece = a.separator + piece
		}

		if a.maxChars > 0 {
			n := utf8.RuneCountInString(piece)
			if used+n > a.maxChars {
				b.WriteString(truncateRunes(piece, a.maxChars-used))
				break
			}
			used += n
		}
		b.WriteString(piece)
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return NoContextSentinel
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
