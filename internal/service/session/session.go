package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/retrieval"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/metrics"
)

type Config struct {
	K                 int
	ScoreThreshold    float64
	SystemInstruction string
	PromptTemplate    string
	History           HistoryOptions
}

type Option func(*Session)

// WithRecorder persists every completed exchange. Recording failures are
// logged and never fail the turn.
func WithRecorder(r core.ExchangeRecorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Session owns one conversation. Turns are serialized, so the same session
// may be shared by several transports.
type Session struct {
	id    string
	cfg   Config
	state atomic.Int32

	retriever *retrieval.Retriever
	filter    *retrieval.Filter
	assembler *retrieval.Assembler
	model     core.LanguageModel
	prompt    *PromptTemplate

	recorder core.ExchangeRecorder
	metrics  *metrics.Manager

	mu          sync.Mutex
	history     *History
	lastSources []core.ScoredCandidate
}

func New(
	cfg Config,
	retriever *retrieval.Retriever,
	filter *retrieval.Filter,
	assembler *retrieval.Assembler,
	model core.LanguageModel,
	opts ...Option,
) (*Session, error) {
	if cfg.K <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", cfg.K)
	}
	prompt, err := NewPromptTemplate(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		retriever: retriever,
		filter:    filter,
		assembler: assembler,
		model:     model,
		prompt:    prompt,
		history:   NewHistory(cfg.SystemInstruction, cfg.History),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetHistoryTurns(s.history.Len())
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Ask runs one turn: retrieve, filter, assemble, compose, invoke, append.
// On failure the history is left untouched and the error is a *TurnError.
func (s *Session) Ask(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyQuery
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.setState(Idle)

	logger := log.FromCtx(ctx).With().Str("session", s.id).Logger()
	ctx = logger.WithContext(ctx)

	s.setState(Retrieving)
	start := time.Now()
	candidates, err := s.retriever.Retrieve(ctx, raw, s.cfg.K)
	if err != nil {
		return "", s.fail(ctx, Retrieving, err)
	}
	retained := s.filter.Filter(ctx, candidates, s.cfg.ScoreThreshold)
	s.metrics.ObserveStage(Retrieving.String(), time.Since(start))

	s.setState(Assembling)
	start = time.Now()
	userTurn := core.Turn{
		Role:    core.RoleUser,
		Content: s.prompt.Compose(s.assembler.Assemble(retained), raw),
	}
	s.metrics.ObserveStage(Assembling.String(), time.Since(start))

	s.setState(Invoking)
	start = time.Now()
	reply, err := s.model.Invoke(ctx, append(s.history.Turns(), userTurn))
	s.metrics.ObserveStage(Invoking.String(), time.Since(start))
	if err != nil {
		if !errors.Is(err, core.ErrModelTimeout) && !errors.Is(err, core.ErrModelUnavailable) {
			err = fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
		}
		return "", s.fail(ctx, Invoking, err)
	}

	assistantTurn := core.Turn{Role: core.RoleAssistant, Content: reply}
	if evicted := s.history.Append(userTurn, assistantTurn); evicted > 0 {
		logger.Debug().Int("evicted", evicted).Msg("history bound reached")
	}
	s.lastSources = retained

	s.metrics.RecordTurn("ok")
	s.metrics.SetHistoryTurns(s.history.Len())

	logger.Debug().
		Int("candidates", len(candidates)).
		Int("retained", len(retained)).
		Int("history", s.history.Len()).
		Msg("turn completed")

	if s.recorder != nil {
		if err := s.recorder.RecordExchange(ctx, s.id, userTurn, assistantTurn); err != nil {
			logger.Warn().Err(err).Msg("failed to record exchange")
		}
	}

	return reply, nil
}

func (s *Session) fail(ctx context.Context, stage State, err error) error {
	log.FromCtx(ctx).Error().Err(err).Stringer("stage", stage).Msg("turn aborted")
	s.metrics.RecordTurn(stage.String())
	return &TurnError{Stage: stage, Err: err}
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Turns returns a copy of the conversation history.
func (s *Session) Turns() []core.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Turns()
}

// LastSources returns the candidates used by the last completed turn.
func (s *Session) LastSources() []core.ScoredCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ScoredCandidate, len(s.lastSources))
	copy(out, s.lastSources)
	return out
}

type Stats struct {
	Turns        int
	Exchanges    int
	MaxExchanges int
	TokenBudget  int
	State        State
}

func (s *Session) Stats() Stats {
	st := s.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Turns:        s.history.Len(),
		Exchanges:    s.history.Exchanges(),
		MaxExchanges: s.cfg.History.MaxExchanges,
		TokenBudget:  s.cfg.History.TokenBudget,
		State:        st,
	}
}
