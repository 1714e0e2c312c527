package session

import (
	"fmt"
	"strings"
)

const (
	contextPlaceholder  = "{context}"
	questionPlaceholder = "{question}"
)

// PromptTemplate composes the augmented user turn.
type PromptTemplate struct {
	format string
}

func NewPromptTemplate(format string) (*PromptTemplate, error) {
	for _, p := range []string{contextPlaceholder, questionPlaceholder} {
		if !strings.Contains(format, p) {
			return nil, fmt.Errorf("prompt template is missing %s", p)
		}
	}
	return &PromptTemplate{format: format}, nil
}

// Compose substitutes both placeholders in one pass, so placeholder text
// inside the context or the question is left alone.
func (p *PromptTemplate) Compose(context, question string) string {
	return strings.NewReplacer(
		contextPlaceholder, context,
		questionPlaceholder, question,
	).Replace(p.format)
}
