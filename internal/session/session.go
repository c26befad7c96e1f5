package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
)

// Status lifecycle states.
const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusClosed     Status = "closed"
)

// Status is the lifecycle state of an attempt.
type Status string

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusClosed
}

var (
	ErrOutOfRange       = errors.New("question index out of range")
	ErrForbidden        = errors.New("question is locked until the previous one is answered")
	ErrUnknownQuestion  = errors.New("question is not part of this session")
	ErrNoAnswer         = errors.New("answer is required")
	ErrSessionFinished  = errors.New("session is already finished")
	ErrAlreadySubmitted = errors.New("session is already submitted")
)

// Scorer computes a result for a set of answers. *scoring.Engine implements it.
type Scorer interface {
	Score(ctx context.Context, questions []question.Question, answers question.Answers, threshold float64) (scoring.Result, error)
}

// Params describes a new attempt.
type Params struct {
	ID        string
	ExamID    string
	ExamTitle string
	UserID    string
	StartTime time.Time
	TimeLimit time.Duration
	Questions []question.Question
	// PassingThreshold is the percentage needed to pass; nil selects the
	// default. 0 is a valid threshold that passes every attempt.
	PassingThreshold *float64
	// LenientNavigation lets NavigateTo reach locked questions.
	LenientNavigation bool
}

// Session is one candidate's attempt at an exam. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	id        string
	examID    string
	examTitle string
	userID    string
	startTime time.Time
	endTime   time.Time
	timeLimit time.Duration
	threshold float64
	strict    bool

	questions   []question.Question
	current     int
	answers     question.Answers
	flagged     map[string]struct{}
	accessOrder []int
	status      Status
	maxScore    int
	result      *scoring.Result
}

// New creates an in-progress session positioned on the first question.
func New(p Params) (*Session, error) {
	if p.ID == "" {
		return nil, errors.New("session id is required")
	}
	if err := question.ValidateSet(p.Questions); err != nil {
		return nil, err
	}
	threshold := scoring.DefaultPassingThreshold
	if p.PassingThreshold != nil {
		threshold = *p.PassingThreshold
	}
	if err := scoring.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	start := p.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	qs := make([]question.Question, len(p.Questions))
	copy(qs, p.Questions)
	order := []int{}
	if len(qs) > 0 {
		order = append(order, 0)
	}

	return &Session{
		id:          p.ID,
		examID:      p.ExamID,
		examTitle:   p.ExamTitle,
		userID:      p.UserID,
		startTime:   start.UTC(),
		timeLimit:   p.TimeLimit,
		threshold:   threshold,
		strict:      !p.LenientNavigation,
		questions:   qs,
		answers:     make(question.Answers),
		flagged:     make(map[string]struct{}),
		accessOrder: order,
		status:      StatusInProgress,
		maxScore:    question.TotalPoints(qs),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ExamID returns the exam this attempt belongs to.
func (s *Session) ExamID() string { return s.examID }

// ExamTitle returns the exam title captured at start.
func (s *Session) ExamTitle() string { return s.examTitle }

// UserID returns the candidate owning the session.
func (s *Session) UserID() string { return s.userID }

// StartTime returns when the attempt started.
func (s *Session) StartTime() time.Time { return s.startTime }

// TimeLimit returns the allowed duration of the attempt.
func (s *Session) TimeLimit() time.Duration { return s.timeLimit }

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// CurrentIndex returns the position of the question being viewed.
func (s *Session) CurrentIndex() int { return s.current }

// MaxScore returns the sum of points over all questions.
func (s *Session) MaxScore() int { return s.maxScore }

// PassingThreshold returns the percentage needed to pass.
func (s *Session) PassingThreshold() float64 { return s.threshold }

// IsSubmitted reports whether the attempt was submitted.
func (s *Session) IsSubmitted() bool { return s.status == StatusSubmitted }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// Question returns the i-th question in attempt order.
func (s *Session) Question(i int) question.Question { return s.questions[i] }

// EndTime returns the end of the attempt and whether it has ended.
func (s *Session) EndTime() (time.Time, bool) {
	return s.endTime, !s.endTime.IsZero()
}

// Questions returns a copy of the fixed question sequence.
func (s *Session) Questions() []question.Question {
	return slices.Clone(s.questions)
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() question.Answers {
	return s.answers.Clone()
}

// Answered reports whether the question has a recorded answer.
func (s *Session) Answered(questionID string) bool {
	_, ok := s.answers[questionID]
	return ok
}

// IsFlagged reports whether the question is marked for review.
func (s *Session) IsFlagged(questionID string) bool {
	_, ok := s.flagged[questionID]
	return ok
}

// Flagged returns the flagged question ids in sorted order.
func (s *Session) Flagged() []string {
	out := make([]string, 0, len(s.flagged))
	for id := range s.flagged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AccessOrder returns the append-only log of indices that became reachable.
func (s *Session) AccessOrder() []int {
	return slices.Clone(s.accessOrder)
}

// Score returns the earned points once the session is submitted.
func (s *Session) Score() (int, bool) {
	if s.result == nil {
		return 0, false
	}
	return s.result.EarnedPoints, true
}

// Result returns the final result of a submitted session, or nil.
func (s *Session) Result() *scoring.Result {
	if s.result == nil {
		return nil
	}
	res := *s.result
	return &res
}

// Deadline is StartTime plus TimeLimit; zero when the exam is untimed.
func (s *Session) Deadline() time.Time {
	if s.timeLimit <= 0 {
		return time.Time{}
	}
	return s.startTime.Add(s.timeLimit)
}

// Remaining returns the time left at now, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	d := s.Deadline()
	if d.IsZero() {
		return 0
	}
	if left := d.Sub(now); left > 0 {
		return left
	}
	return 0
}

// TimeSpentMinutes is the attempt duration rounded to whole minutes. Until
// the session ends it is measured up to now.
func (s *Session) TimeSpentMinutes(now time.Time) int {
	end := now
	if !s.endTime.IsZero() {
		end = s.endTime
	}
	d := end.Sub(s.startTime)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

// RecordAnswer inserts or overwrites the answer for a question. It never
// moves the cursor.
func (s *Session) RecordAnswer(questionID string, a question.Answer) error {
	if s.status.Terminal() {
		return ErrSessionFinished
	}
	idx := question.IndexOf(s.questions, questionID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if a == nil {
		return ErrNoAnswer
	}
	s.answers[questionID] = a
	s.unlockAfter(idx)
	return nil
}

// NavigateTo moves the cursor. Locked indices are rejected unless the
// session was created with lenient navigation.
func (s *Session) NavigateTo(index int) error {
	if s.status.Terminal() {
		return ErrSessionFinished
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(s.questions))
	}
	if s.strict && !CanAccess(index, s) {
		return fmt.Errorf("%w: %d", ErrForbidden, index)
	}
	s.current = index
	return nil
}

// ToggleFlag flips the review mark on a question and returns the new state.
func (s *Session) ToggleFlag(questionID string) (bool, error) {
	if s.status.Terminal() {
		return false, ErrSessionFinished
	}
	if question.IndexOf(s.questions, questionID) < 0 {
		return false, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if _, ok := s.flagged[questionID]; ok {
		delete(s.flagged, questionID)
		return false, nil
	}
	s.flagged[questionID] = struct{}{}
	return true, nil
}

// Submit scores the attempt and ends it. A second call returns
// ErrAlreadySubmitted and leaves the score and end time untouched.
func (s *Session) Submit(ctx context.Context, scorer Scorer, now time.Time) (scoring.Result, error) {
	switch s.status {
	case StatusSubmitted:
		return *s.result, ErrAlreadySubmitted
	case StatusClosed:
		return scoring.Result{}, ErrSessionFinished
	}

	res, err := scorer.Score(ctx, s.questions, s.answers, s.threshold)
	if err != nil {
		return scoring.Result{}, fmt.Errorf("score session: %w", err)
	}
	s.result = &res
	s.status = StatusSubmitted
	if s.endTime.IsZero() {
		s.endTime = now.UTC()
	}
	return res, nil
}

// Close ends the attempt without submitting it. Preview can still score it.
func (s *Session) Close(now time.Time) error {
	switch s.status {
	case StatusSubmitted:
		return ErrAlreadySubmitted
	case StatusClosed:
		return ErrSessionFinished
	}
	s.status = StatusClosed
	if s.endTime.IsZero() {
		s.endTime = now.UTC()
	}
	return nil
}

// Preview scores the current answers without changing the session. It works
// in every state.
func (s *Session) Preview(ctx context.Context, scorer Scorer) (scoring.Result, error) {
	return scorer.Score(ctx, s.questions, s.answers, s.threshold)
}
