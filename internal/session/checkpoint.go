package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// DefaultFreshness is how long a checkpoint can be restored after it was taken.
const DefaultFreshness = 24 * time.Hour

var (
	ErrStaleCheckpoint   = errors.New("checkpoint is older than the freshness window")
	ErrInvalidCheckpoint = errors.New("checkpoint does not match the session")
)

// Checkpoint is the auto-save record of an in-progress attempt.
type Checkpoint struct {
	ExamSession CheckpointState `json:"examSession"`
	Timestamp   time.Time       `json:"timestamp"`
	// Owner fields let a resume be checked against the caller.
	ExamID string `json:"examId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// CheckpointState is the restorable part of a session.
type CheckpointState struct {
	StartTime            time.Time         `json:"startTime"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	Answers              map[string]string `json:"answers"`
	FlaggedQuestions     []string          `json:"flaggedQuestions"`
}

// Fresh reports whether the checkpoint may still be restored at now.
func (c Checkpoint) Fresh(now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultFreshness
	}
	return now.Sub(c.Timestamp) <= window
}

// Snapshot captures the restorable state at a single point in time.
func (s *Session) Snapshot(now time.Time) Checkpoint {
	return Checkpoint{
		ExamSession: CheckpointState{
			StartTime:            s.startTime,
			CurrentQuestionIndex: s.current,
			Answers:              s.answers.Encode(),
			FlaggedQuestions:     s.Flagged(),
		},
		Timestamp: now.UTC(),
		ExamID:    s.examID,
		UserID:    s.userID,
	}
}

// Restore rehydrates an in-progress session from a checkpoint. Stale
// checkpoints return ErrStaleCheckpoint and leave the session untouched.
// Answers and flags for questions outside the session are dropped.
func (s *Session) Restore(cp Checkpoint, now time.Time, window time.Duration) error {
	if s.status.Terminal() {
		return ErrSessionFinished
	}
	if !cp.Fresh(now, window) {
		return ErrStaleCheckpoint
	}
	if (cp.ExamID != "" && cp.ExamID != s.examID) || (cp.UserID != "" && cp.UserID != s.userID) {
		return ErrInvalidCheckpoint
	}
	st := cp.ExamSession
	if st.CurrentQuestionIndex < 0 || (len(s.questions) > 0 && st.CurrentQuestionIndex >= len(s.questions)) {
		return fmt.Errorf("%w: index %d", ErrInvalidCheckpoint, st.CurrentQuestionIndex)
	}

	answers := make(question.Answers, len(st.Answers))
	for id, a := range question.DecodeAnswers(st.Answers, s.questions) {
		if question.IndexOf(s.questions, id) >= 0 {
			answers[id] = a
		}
	}
	flagged := make(map[string]struct{}, len(st.FlaggedQuestions))
	for _, id := range st.FlaggedQuestions {
		if question.IndexOf(s.questions, id) >= 0 {
			flagged[id] = struct{}{}
		}
	}

	if !st.StartTime.IsZero() {
		s.startTime = st.StartTime.UTC()
	}
	s.current = st.CurrentQuestionIndex
	s.answers = answers
	s.flagged = flagged

	// the log itself is not checkpointed; rebuild it in index order
	s.accessOrder = s.accessOrder[:0]
	if len(s.questions) > 0 {
		s.accessOrder = append(s.accessOrder, 0)
	}
	for i, q := range s.questions {
		if _, ok := answers[q.ID]; ok {
			s.unlockAfter(i)
		}
	}
	return nil
}
