package retrieval

import (
	"context"

	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/metrics"
)

// Sink observes retention decisions. It must not block.
type Sink interface {
	Report(ctx context.Context, d RetentionDecision)
}

type SinkFunc func(ctx context.Context, d RetentionDecision)

func (f SinkFunc) Report(ctx context.Context, d RetentionDecision) {
	f(ctx, d)
}

// MultiSink fans a decision out to several sinks.
type MultiSink []Sink

func (m MultiSink) Report(ctx context.Context, d RetentionDecision) {
	for _, s := range m {
		s.Report(ctx, d)
	}
}

// LogSink writes discarded candidates at info and kept ones at debug.
type LogSink struct{}

func (LogSink) Report(ctx context.Context, d RetentionDecision) {
	logger := log.FromCtx(ctx)

	event := logger.Debug()
	msg := "keeping candidate"
	if !d.Kept {
		event = logger.Info()
		msg = "skipping candidate"
	}

	event.
		Str("source", d.Candidate.Source()).
		Float64("score", d.Candidate.Score).
		Float64("threshold", d.Threshold).
		Stringer("direction", d.Direction).
		Msg(msg)
}

// MetricsSink counts decisions.
type MetricsSink struct {
	Metrics *metrics.Manager
}

func (s MetricsSink) Report(_ context.Context, d RetentionDecision) {
	if d.Kept {
		s.Metrics.RecordCandidates(1, 0)
		return
	}
	s.Metrics.RecordCandidates(0, 1)
}
