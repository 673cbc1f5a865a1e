package query

import (
	"context"
	"errors"

	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/session"
)

type Service struct {
	options  Options
	store    session.Store
	pipeline *Pipeline
}

func (s *Service) Ask(ctx context.Context, caller service.Caller, sessionID string, question string) (Answer, error) {
	sess, err := s.Lookup(ctx, sessionID)
	if err != nil {
		s.options.Metrics.Query("not_found", 0)
		return Answer{}, err
	}

	answer, err := s.pipeline.Answer(ctx, sess, question, s.options.TopK)
	if err != nil {
		s.options.Metrics.Query(outcome(err), 0)
		return Answer{}, err
	}

	s.options.Metrics.Query("ok", answer.Latency)

	s.options.Logger.InfoContext(ctx, "question answered",
		"session_id", sess.ID,
		"passages", len(answer.Passages),
		"latency_ms", answer.Latency.Milliseconds(),
	)

	s.record(ctx, caller, sess, question, answer)

	return answer, nil
}

// Lookup returns the live session with the given id.
func (s *Service) Lookup(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, service.NewError(service.ErrNotFound, "document not found or expired, upload it again", err)
	}
	if err != nil {
		return nil, service.NewError(service.ErrInternal, "session lookup failed", err)
	}
	return sess, nil
}

func (s *Service) record(ctx context.Context, caller service.Caller, sess *session.Session, question string, answer Answer) {
	if s.options.Recorder == nil {
		return
	}

	var score float64
	if len(answer.Passages) > 0 {
		score = answer.Passages[0].Score
	}

	err := s.options.Recorder.SaveQuery(ctx, history.Query{
		ID:           session.NewID(),
		DocumentID:   sess.ID,
		Owner:        caller.Source(),
		Question:     question,
		Answer:       answer.Text,
		ResponseTime: answer.Latency,
		Score:        score,
	})
	if err != nil {
		s.options.Logger.WarnContext(ctx, "failed to record query history", "session_id", sess.ID, "error", err)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, service.ErrRetrieval):
		return "retrieval_error"
	case errors.Is(err, service.ErrSynthesis):
		return "synthesis_error"
	}
	return "error"
}

func New(store session.Store, pipeline *Pipeline, opts ...Option) *Service {
	options := NewOptions(opts...)

	return &Service{
		options:  options,
		store:    store,
		pipeline: pipeline,
	}
}
