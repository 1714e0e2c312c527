package core

import "errors"

var (
	ErrIndexUnavailable  = errors.New("similarity index unavailable")
	ErrModelUnavailable  = errors.New("language model unavailable")
	ErrModelTimeout      = errors.New("language model timed out")
	ErrNotAPDF           = errors.New("response is not a PDF document")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
