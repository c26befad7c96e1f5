package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jayem09/coduxa-sub000/internal/question"
	"github.com/Jayem09/coduxa-sub000/internal/scoring"
)

func TestNew(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, StatusInProgress, s.Status())
	assert.Equal(t, 20, s.MaxScore())
	assert.Equal(t, []int{0}, s.AccessOrder())
	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, scoring.DefaultPassingThreshold, s.PassingThreshold())
	_, ended := s.EndTime()
	assert.False(t, ended)
	_, scored := s.Score()
	assert.False(t, scored)

	empty := newTestSession(t, func(p *Params) { p.Questions = nil })
	assert.Empty(t, empty.AccessOrder())
	assert.Equal(t, 0, empty.MaxScore())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Params{Questions: threeQuestions()})
	assert.Error(t, err, "id required")

	_, err = New(Params{ID: "s", Questions: append(threeQuestions(), threeQuestions()[0])})
	var verr *question.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = New(Params{ID: "s", Questions: threeQuestions(), PassingThreshold: pct(101)})
	assert.ErrorIs(t, err, scoring.ErrInvalidThreshold)
}

func TestRecordAnswer(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))
	assert.True(t, s.Answered("q1"))
	assert.Equal(t, 0, s.CurrentIndex(), "answering never moves the cursor")
	assert.Equal(t, []int{0, 1}, s.AccessOrder())

	// overwriting keeps the log append-only
	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("var")))
	assert.Equal(t, []int{0, 1}, s.AccessOrder())
	assert.Equal(t, question.StringAnswer("var"), s.Answers()["q1"])

	// an empty answer is still an answer
	require.NoError(t, s.RecordAnswer("q3", question.StringAnswer("")))
	assert.True(t, s.Answered("q3"))

	assert.ErrorIs(t, s.RecordAnswer("nope", question.StringAnswer("x")), ErrUnknownQuestion)
	assert.ErrorIs(t, s.RecordAnswer("q2", nil), ErrNoAnswer)
}

func TestAnswersAreCopies(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))

	got := s.Answers()
	got["q2"] = question.StringAnswer("false")
	assert.False(t, s.Answered("q2"))

	qs := s.Questions()
	qs[0].Points = 1000
	assert.Equal(t, 10, s.Question(0).Points)
}

func TestAccessFrontierIsMonotonic(t *testing.T) {
	qs := make([]question.Question, 8)
	for i := range qs {
		qs[i] = question.Question{ID: string(rune('a' + i)), Type: question.TypeTrueFalse, Points: 1, CorrectAnswer: question.Key{"true"}}
	}
	s := newTestSession(t, func(p *Params) { p.Questions = qs })

	for k := 1; k < len(qs); k++ {
		assert.False(t, CanAccess(k, s), "index %d locked before %d is answered", k, k-1)
		require.NoError(t, s.RecordAnswer(qs[k-1].ID, question.StringAnswer("true")))
		assert.True(t, CanAccess(k, s), "index %d unlocked right after %d is answered", k, k-1)
		for j := 0; j <= k; j++ {
			assert.True(t, CanAccess(j, s), "index %d stays reachable", j)
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, s.AccessOrder())
}

func TestCanAccess_LockedBehindUnanswered(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))

	assert.True(t, CanAccess(0, s))
	assert.True(t, CanAccess(1, s))
	assert.False(t, CanAccess(2, s), "q2 unanswered and cursor at 0")
	assert.Equal(t, []int{0, 1}, AccessibleIndices(s))

	assert.False(t, CanAccess(-1, s))
	assert.False(t, CanAccess(3, s))
	assert.False(t, CanAccess(0, nil))
}

func TestCanAccess_BehindCursor(t *testing.T) {
	s := newTestSession(t, func(p *Params) { p.LenientNavigation = true })
	require.NoError(t, s.NavigateTo(2))
	assert.True(t, CanAccess(1, s), "indices at or before the cursor are reachable")
	assert.True(t, CanAccess(2, s))
}

func TestNavigateTo(t *testing.T) {
	s := newTestSession(t)

	assert.ErrorIs(t, s.NavigateTo(-1), ErrOutOfRange)
	assert.ErrorIs(t, s.NavigateTo(3), ErrOutOfRange)
	assert.ErrorIs(t, s.NavigateTo(1), ErrForbidden)
	assert.Equal(t, 0, s.CurrentIndex())

	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))
	require.NoError(t, s.NavigateTo(1))
	assert.Equal(t, 1, s.CurrentIndex())
	require.NoError(t, s.NavigateTo(0), "going back is always allowed")
}

func TestNavigateTo_Lenient(t *testing.T) {
	s := newTestSession(t, func(p *Params) { p.LenientNavigation = true })
	require.NoError(t, s.NavigateTo(2))
	assert.Equal(t, 2, s.CurrentIndex())
	assert.ErrorIs(t, s.NavigateTo(7), ErrOutOfRange)
}

func TestToggleFlag(t *testing.T) {
	s := newTestSession(t)

	on, err := s.ToggleFlag("q3")
	require.NoError(t, err)
	assert.True(t, on)
	_, err = s.ToggleFlag("q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3"}, s.Flagged())

	off, err := s.ToggleFlag("q3")
	require.NoError(t, err)
	assert.False(t, off)
	assert.False(t, s.IsFlagged("q3"))

	_, err = s.ToggleFlag("ghost")
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSubmit(t *testing.T) {
	s := newTestSession(t)
	engine := testEngine(t)
	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))
	require.NoError(t, s.RecordAnswer("q2", question.StringAnswer("false")))
	require.NoError(t, s.RecordAnswer("q3", question.StringAnswer(" object ")))

	res, err := s.Submit(context.Background(), engine, t0.Add(12*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 15, res.EarnedPoints)
	assert.Equal(t, 75.0, res.Percentage)
	assert.True(t, res.Passed)
	assert.Equal(t, scoring.GradeC, res.Grade)

	assert.True(t, s.IsSubmitted())
	score, ok := s.Score()
	assert.True(t, ok)
	assert.Equal(t, 15, score)
	assert.Equal(t, 12, s.TimeSpentMinutes(t0.Add(time.Hour)), "end time is fixed after submit")
}

func TestSubmitWithZeroThreshold(t *testing.T) {
	s := newTestSession(t, func(p *Params) { p.PassingThreshold = pct(0) })
	assert.Equal(t, 0.0, s.PassingThreshold())

	res, err := s.Submit(context.Background(), testEngine(t), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, res.EarnedPoints)
	assert.True(t, res.Passed, "a zero threshold passes an unanswered attempt")
}

func TestSubmitTwiceIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	engine := testEngine(t)
	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))

	first, err := s.Submit(context.Background(), engine, t0.Add(5*time.Minute))
	require.NoError(t, err)
	end1, _ := s.EndTime()

	second, err := s.Submit(context.Background(), engine, t0.Add(50*time.Minute))
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, first, second)

	end2, _ := s.EndTime()
	assert.Equal(t, end1, end2)
	score, _ := s.Score()
	assert.Equal(t, first.EarnedPoints, score)
}

func TestMutationsAfterSubmit(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Submit(context.Background(), testEngine(t), t0)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RecordAnswer("q1", question.StringAnswer("let")), ErrSessionFinished)
	assert.ErrorIs(t, s.NavigateTo(0), ErrSessionFinished)
	_, err = s.ToggleFlag("q1")
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.ErrorIs(t, s.Close(t0), ErrAlreadySubmitted)
}

func TestClose(t *testing.T) {
	s := newTestSession(t)
	engine := testEngine(t)
	require.NoError(t, s.RecordAnswer("q1", question.StringAnswer("let")))

	require.NoError(t, s.Close(t0.Add(3*time.Minute)))
	assert.Equal(t, StatusClosed, s.Status())
	assert.False(t, s.IsSubmitted())
	_, scored := s.Score()
	assert.False(t, scored, "closing does not set a score")
	end, ok := s.EndTime()
	assert.True(t, ok)
	assert.Equal(t, t0.Add(3*time.Minute), end)

	assert.ErrorIs(t, s.Close(t0.Add(time.Hour)), ErrSessionFinished)

	_, err := s.Submit(context.Background(), engine, t0)
	assert.ErrorIs(t, err, ErrSessionFinished)

	// scoring stays available for close-and-save
	res, err := s.Preview(context.Background(), engine)
	require.NoError(t, err)
	assert.Equal(t, 10, res.EarnedPoints)
	assert.Equal(t, StatusClosed, s.Status())
}

func TestTimeAccounting(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, t0.Add(30*time.Minute), s.Deadline())
	assert.Equal(t, 10*time.Minute, s.Remaining(t0.Add(20*time.Minute)))
	assert.Zero(t, s.Remaining(t0.Add(2*time.Hour)))

	assert.Equal(t, 0, s.TimeSpentMinutes(t0.Add(-time.Minute)), "never negative")
	assert.Equal(t, 1, s.TimeSpentMinutes(t0.Add(80*time.Second)), "rounds to nearest minute")
	assert.Equal(t, 2, s.TimeSpentMinutes(t0.Add(100*time.Second)))
	assert.Equal(t, 0, s.TimeSpentMinutes(t0.Add(29*time.Second)))

	untimed := newTestSession(t, func(p *Params) { p.TimeLimit = 0 })
	assert.True(t, untimed.Deadline().IsZero())
	assert.Zero(t, untimed.Remaining(t0))
}
