package question

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/rs/zerolog"
)

// ErrNoQuestions is returned when an exam has no usable questions.
var ErrNoQuestions = errors.New("exam has no questions")

// Bank is the persistent question source (implemented by the Postgres repository).
type Bank interface {
	ListByExam(ctx context.Context, examID string) ([]Question, error)
}

// SetCache defines cache behavior (implemented by Redis-backed Cache).
type SetCache interface {
	Get(ctx context.Context, examID string) ([]Question, error)
	Set(ctx context.Context, examID string, questions []Question) error
}

// SelectRequest describes the question set wanted for one attempt.
type SelectRequest struct {
	ExamID string
	// Count limits the number of questions; 0 means all.
	Count int
	// Seed makes selection reproducible, so a restored attempt sees the same
	// questions in the same order. Empty keeps bank order.
	Seed string
}

// Service loads exam question sets, cache first.
type Service struct {
	bank   Bank
	cache  SetCache
	logger zerolog.Logger
}

func NewService(bank Bank, cache SetCache, logger zerolog.Logger) *Service {
	return &Service{
		bank:   bank,
		cache:  cache,
		logger: logger.With().Str("component", "question_service").Logger(),
	}
}

// ExamQuestions returns the validated question bank for an exam.
func (s *Service) ExamQuestions(ctx context.Context, examID string) ([]Question, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, examID)
		if err != nil {
			s.logger.Warn().Err(err).Str("exam_id", examID).Msg("question cache read failed")
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	qs, err := s.bank.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}
	if err := ValidateSet(qs); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, examID, qs); err != nil {
			s.logger.Warn().Err(err).Str("exam_id", examID).Msg("question cache write failed")
		}
	}
	return qs, nil
}

// Select returns the fixed question sequence for one attempt.
func (s *Service) Select(ctx context.Context, req SelectRequest) ([]Question, error) {
	all, err := s.ExamQuestions(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	return Pick(all, req.Count, req.Seed), nil
}

// Pick shuffles questions deterministically by seed and truncates to count.
// The input slice is never modified.
func Pick(questions []Question, count int, seed string) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)

	if seed != "" {
		h := fnv.New64a()
		_, _ = h.Write([]byte(seed))
		r := rand.New(rand.NewPCG(h.Sum64(), uint64(len(out))))
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}
