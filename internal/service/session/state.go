package session

import (
	"errors"
	"fmt"

	"github.com/sandevgo/docqa/internal/core"
)

type State int32

const (
	Idle State = iota
	Retrieving
	Assembling
	Invoking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Retrieving:
		return "retrieving"
	case Assembling:
		return "assembling"
	case Invoking:
		return "invoking"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var ErrEmptyQuery = errors.New("empty query")

// TurnError reports the stage at which a turn was aborted.
type TurnError struct {
	Stage State
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Describe renders a turn failure for display in place of a reply.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return "please type a question"
	case errors.Is(err, core.ErrModelTimeout):
		return "the language model did not answer in time, please try again"
	case errors.Is(err, core.ErrModelUnavailable):
		return "the language model is unavailable right now"
	case errors.Is(err, core.ErrDimensionMismatch):
		return "the document index was built with a different embedding model, run `docqa index --rebuild`"
	case errors.Is(err, core.ErrIndexUnavailable):
		return "the document index is unavailable right now"
	default:
		return err.Error()
	}
}
